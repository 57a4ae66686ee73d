// Package state defines the shared project record mutated across an
// authoring conversation, and the pure merge rules that arbitrate between
// extractions of different confidence.
//
// The record is partitioned into sections with exactly one writer each:
// narrative (story subagent), design (design subagent), assessment (quality
// subagent). Media is owned by the upload pipeline; the core only relabels
// and reorders it. The checkpoint phase and per-field confidence map are
// maintained by the merge functions themselves.
package state

import (
	"fmt"
	"time"
)

// ImageType classifies an uploaded image.
type ImageType string

const (
	ImageBefore   ImageType = "before"
	ImageAfter    ImageType = "after"
	ImageProgress ImageType = "progress"
	ImageDetail   ImageType = "detail"
)

// Image is one entry in the project's media inventory.
type Image struct {
	ID   string    `json:"id"`
	URL  string    `json:"url"`
	Type ImageType `json:"type,omitempty"`
	Alt  string    `json:"alt,omitempty"`
}

// NarrativeSection holds everything extracted from the user's account of
// the project. Written only by the story subagent.
type NarrativeSection struct {
	ProjectType string   `json:"project_type,omitempty"`
	Problem     string   `json:"problem,omitempty"`
	Solution    string   `json:"solution,omitempty"`
	Materials   []string `json:"materials,omitempty"`
	Techniques  []string `json:"techniques,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	ProudOf     string   `json:"proud_of,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// MediaSection is the ordered image inventory plus the designated hero.
type MediaSection struct {
	Images      []Image `json:"images,omitempty"`
	HeroImageID string  `json:"hero_image_id,omitempty"`
}

// ByType groups the image inventory by image type, preserving order.
func (m MediaSection) ByType() map[ImageType][]Image {
	out := make(map[ImageType][]Image)
	for _, img := range m.Images {
		out[img.Type] = append(out[img.Type], img)
	}
	return out
}

// DesignTokens is the bounded set of visual choices. Every field is one of
// a small closed enumeration; arbitrary styling is never stored.
type DesignTokens struct {
	Layout       string `json:"layout,omitempty"`        // single-column, two-column, gallery-grid, timeline
	Spacing      string `json:"spacing,omitempty"`       // compact, comfortable, airy
	HeadingStyle string `json:"heading_style,omitempty"` // bold, serif, uppercase
	BodySize     string `json:"body_size,omitempty"`     // small, medium, large
	AccentColor  string `json:"accent_color,omitempty"`  // slate, brick, forest, ocean, sand
	Background   string `json:"background,omitempty"`    // plain, tinted, contrast
	ImageDisplay string `json:"image_display,omitempty"` // full-bleed, framed, side-by-side
	HeroStyle    string `json:"hero_style,omitempty"`    // banner, split, minimal, dramatic
}

// BlockType identifies one of the semantic content block kinds.
type BlockType string

const (
	BlockHeroSection   BlockType = "hero-section"
	BlockBeforeAfter   BlockType = "before-after"
	BlockParagraph     BlockType = "paragraph"
	BlockStats         BlockType = "stats"
	BlockMaterialsList BlockType = "materials-list"
	BlockTestimonial   BlockType = "testimonial"
	BlockCTASection    BlockType = "cta-section"
	BlockImageGallery  BlockType = "image-gallery"
)

// Block is one typed content block in the composed layout.
type Block struct {
	Type     BlockType `json:"type"`
	Text     string    `json:"text,omitempty"`
	Items    []string  `json:"items,omitempty"`
	ImageIDs []string  `json:"image_ids,omitempty"`
}

// DesignSection is the design subagent's output: tokens plus an ordered
// block list and the reasoning behind them.
type DesignSection struct {
	Tokens    DesignTokens `json:"tokens"`
	Blocks    []Block      `json:"blocks,omitempty"`
	Rationale string       `json:"rationale,omitempty"`
}

// ReadinessTier is the quality subagent's qualitative verdict. It is
// advisory only; nothing in the core blocks publishing on it.
type ReadinessTier string

const (
	TierNeedsWork   ReadinessTier = "needs-work"
	TierAlmostThere ReadinessTier = "almost-there"
	TierReady       ReadinessTier = "ready"
)

// AssessmentSection holds the quality subagent's advisory signals.
type AssessmentSection struct {
	MissingFields []string      `json:"missing_fields,omitempty"`
	WeakFields    []string      `json:"weak_fields,omitempty"`
	Tier          ReadinessTier `json:"tier,omitempty"`
	Suggestions   []string      `json:"suggestions,omitempty"`
	AssessedAt    time.Time     `json:"assessed_at,omitempty"`
}

// ConfidenceMap tracks per-field extraction confidence (0.0–1.0). Merges
// only replace a field's value when the incoming confidence is at least
// the stored one, so values ratchet toward higher certainty.
type ConfidenceMap map[string]float64

// At returns the stored confidence for a field, zero if never set.
func (c ConfidenceMap) At(field string) float64 {
	if c == nil {
		return 0
	}
	return c[field]
}

// ProjectState is the single mutable record of a project being authored.
type ProjectState struct {
	ProjectID  string            `json:"project_id"`
	Narrative  NarrativeSection  `json:"narrative"`
	Media      MediaSection      `json:"media"`
	Design     DesignSection     `json:"design"`
	Assessment AssessmentSection `json:"assessment"`
	Checkpoint string            `json:"checkpoint"`
	// No omitempty: an empty map must survive a marshal round-trip, or a
	// freshly created project would reload with a nil map and fail Validate.
	Confidence ConfidenceMap     `json:"confidence"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// New creates an empty project record in the initial workflow phase.
func New(projectID string) *ProjectState {
	return &ProjectState{
		ProjectID:  projectID,
		Checkpoint: "images-uploaded",
		Confidence: make(ConfidenceMap),
		UpdatedAt:  time.Now().UTC(),
	}
}

// Validate checks the structural invariants a state must satisfy before the
// orchestrator will dispatch on it.
func (s *ProjectState) Validate() error {
	if s == nil {
		return fmt.Errorf("project state is nil")
	}
	if s.ProjectID == "" {
		return fmt.Errorf("project state missing project id")
	}
	if s.Checkpoint == "" {
		return fmt.Errorf("project %s has no checkpoint phase", s.ProjectID)
	}
	if s.Confidence == nil {
		return fmt.Errorf("project %s has no confidence map", s.ProjectID)
	}
	return nil
}

// Clone returns a deep copy. Subagents receive clones so an in-flight
// invocation can never observe a partially merged record.
func (s *ProjectState) Clone() *ProjectState {
	if s == nil {
		return nil
	}
	out := *s
	out.Narrative.Materials = append([]string(nil), s.Narrative.Materials...)
	out.Narrative.Techniques = append([]string(nil), s.Narrative.Techniques...)
	out.Narrative.Tags = append([]string(nil), s.Narrative.Tags...)
	out.Media.Images = append([]Image(nil), s.Media.Images...)
	out.Design.Blocks = make([]Block, len(s.Design.Blocks))
	for i, b := range s.Design.Blocks {
		nb := b
		nb.Items = append([]string(nil), b.Items...)
		nb.ImageIDs = append([]string(nil), b.ImageIDs...)
		out.Design.Blocks[i] = nb
	}
	out.Assessment.MissingFields = append([]string(nil), s.Assessment.MissingFields...)
	out.Assessment.WeakFields = append([]string(nil), s.Assessment.WeakFields...)
	out.Assessment.Suggestions = append([]string(nil), s.Assessment.Suggestions...)
	out.Confidence = make(ConfidenceMap, len(s.Confidence))
	for k, v := range s.Confidence {
		out.Confidence[k] = v
	}
	return &out
}
