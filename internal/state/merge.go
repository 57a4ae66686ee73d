package state

import (
	"sort"
	"strings"
	"time"
)

// Confidence map keys for narrative fields.
const (
	FieldProjectType = "project_type"
	FieldProblem     = "problem"
	FieldSolution    = "solution"
	FieldMaterials   = "materials"
	FieldTechniques  = "techniques"
	FieldCity        = "city"
	FieldState       = "state"
	FieldDuration    = "duration"
	FieldProudOf     = "proud_of"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldTags        = "tags"
	FieldDesign      = "design"
)

// NarrativeExtraction is one round of narrative information with an overall
// confidence. Empty fields mean "nothing learned", never "clear this".
type NarrativeExtraction struct {
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

	// Confidence applies to every scalar field in this extraction.
	// Per-field overrides win when present.
	Confidence      float64            `json:"confidence"`
	FieldConfidence map[string]float64 `json:"field_confidence,omitempty"`
}

// IsEmpty reports whether the extraction carries no information at all.
func (e NarrativeExtraction) IsEmpty() bool {
	return e.ProjectType == "" && e.Problem == "" && e.Solution == "" &&
		len(e.Materials) == 0 && len(e.Techniques) == 0 &&
		e.City == "" && e.State == "" && e.Duration == "" &&
		e.ProudOf == "" && e.Title == "" && e.Description == "" && len(e.Tags) == 0
}

func (e NarrativeExtraction) confidenceFor(field string) float64 {
	if c, ok := e.FieldConfidence[field]; ok {
		return c
	}
	return e.Confidence
}

// MergeNarrative folds an extraction into a state and returns the merged
// copy. The input state is not mutated. Rules:
//
//   - a non-empty scalar replaces the stored value only when its confidence
//     is >= the stored confidence for that field (or the stored value is empty)
//   - materials, techniques, and tags merge as de-duplicated unions; the
//     list confidence ratchets up to the higher of the two
//   - an empty extraction field never clears stored data
//
// The merge is commutative with merges into other sections and is the only
// writer of narrative fields, so batches can apply results in any order.
func MergeNarrative(s *ProjectState, e NarrativeExtraction) *ProjectState {
	out := s.Clone()
	if e.IsEmpty() {
		return out
	}

	mergeScalar(out, FieldProjectType, &out.Narrative.ProjectType, e.ProjectType, e.confidenceFor(FieldProjectType))
	mergeScalar(out, FieldProblem, &out.Narrative.Problem, e.Problem, e.confidenceFor(FieldProblem))
	mergeScalar(out, FieldSolution, &out.Narrative.Solution, e.Solution, e.confidenceFor(FieldSolution))
	mergeScalar(out, FieldCity, &out.Narrative.City, e.City, e.confidenceFor(FieldCity))
	mergeScalar(out, FieldState, &out.Narrative.State, e.State, e.confidenceFor(FieldState))
	mergeScalar(out, FieldDuration, &out.Narrative.Duration, e.Duration, e.confidenceFor(FieldDuration))
	mergeScalar(out, FieldProudOf, &out.Narrative.ProudOf, e.ProudOf, e.confidenceFor(FieldProudOf))
	mergeScalar(out, FieldTitle, &out.Narrative.Title, e.Title, e.confidenceFor(FieldTitle))
	mergeScalar(out, FieldDescription, &out.Narrative.Description, e.Description, e.confidenceFor(FieldDescription))

	if len(e.Materials) > 0 {
		out.Narrative.Materials = UnionStrings(out.Narrative.Materials, e.Materials)
		raiseConfidence(out, FieldMaterials, e.confidenceFor(FieldMaterials))
	}
	if len(e.Techniques) > 0 {
		out.Narrative.Techniques = UnionStrings(out.Narrative.Techniques, e.Techniques)
		raiseConfidence(out, FieldTechniques, e.confidenceFor(FieldTechniques))
	}
	if len(e.Tags) > 0 {
		out.Narrative.Tags = UnionStrings(out.Narrative.Tags, e.Tags)
		raiseConfidence(out, FieldTags, e.confidenceFor(FieldTags))
	}

	out.UpdatedAt = time.Now().UTC()
	return out
}

// MergeDesign replaces the design section wholesale. Design results are
// composed against the current narrative, so the newest composition wins;
// partial re-composition is the design subagent's job, not the merge's.
func MergeDesign(s *ProjectState, d DesignSection, heroImageID string, confidence float64) *ProjectState {
	out := s.Clone()
	if len(d.Blocks) == 0 && d.Tokens == (DesignTokens{}) {
		return out
	}
	out.Design = d
	if heroImageID != "" {
		out.Media.HeroImageID = heroImageID
	}
	// The stored score describes the stored composition. Replacement means
	// the confidence follows the new content, down as well as up.
	out.Confidence[FieldDesign] = confidence
	out.UpdatedAt = time.Now().UTC()
	return out
}

// MergeAssessment replaces the assessment section. Assessments are advisory
// snapshots; the latest one is the only one that matters.
func MergeAssessment(s *ProjectState, a AssessmentSection) *ProjectState {
	out := s.Clone()
	if a.Tier == "" && len(a.MissingFields) == 0 && len(a.Suggestions) == 0 {
		return out
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	out.Assessment = a
	out.UpdatedAt = time.Now().UTC()
	return out
}

// RelabelImage updates the type and alt text of an image in place. Used by
// the story subagent when narrative extraction reveals image roles, and by
// the reorder-images fast-turn operation.
func RelabelImage(s *ProjectState, imageID string, imgType ImageType, alt string) *ProjectState {
	out := s.Clone()
	for i := range out.Media.Images {
		if out.Media.Images[i].ID != imageID {
			continue
		}
		if imgType != "" {
			out.Media.Images[i].Type = imgType
		}
		if alt != "" {
			out.Media.Images[i].Alt = alt
		}
		out.UpdatedAt = time.Now().UTC()
		break
	}
	return out
}

// ReorderImages applies a new ordering given as image IDs. IDs not present
// in the inventory are ignored; images missing from the order keep their
// relative position at the end.
func ReorderImages(s *ProjectState, order []string) *ProjectState {
	out := s.Clone()
	byID := make(map[string]Image, len(out.Media.Images))
	for _, img := range out.Media.Images {
		byID[img.ID] = img
	}
	reordered := make([]Image, 0, len(out.Media.Images))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if img, ok := byID[id]; ok && !seen[id] {
			reordered = append(reordered, img)
			seen[id] = true
		}
	}
	for _, img := range out.Media.Images {
		if !seen[img.ID] {
			reordered = append(reordered, img)
		}
	}
	out.Media.Images = reordered
	out.UpdatedAt = time.Now().UTC()
	return out
}

// UnionStrings merges two string lists into a de-duplicated union. Existing
// entries keep their order; new entries are appended in sorted order so the
// result is deterministic regardless of extraction order.
func UnionStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, v := range existing {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	added := make([]string, 0, len(incoming))
	for _, v := range incoming {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		added = append(added, strings.TrimSpace(v))
	}
	sort.Strings(added)
	return append(out, added...)
}

// mergeScalar writes value into dst when it is non-empty and at least as
// confident as what is stored. Equal confidence replaces, which makes
// re-merging an identical extraction idempotent.
func mergeScalar(s *ProjectState, field string, dst *string, value string, conf float64) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if *dst != "" && conf < s.Confidence.At(field) {
		return
	}
	*dst = value
	raiseConfidence(s, field, conf)
}

func raiseConfidence(s *ProjectState, field string, conf float64) {
	if conf > s.Confidence.At(field) {
		s.Confidence[field] = conf
	} else if _, ok := s.Confidence[field]; !ok {
		s.Confidence[field] = conf
	}
}
