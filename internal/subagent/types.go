// Package subagent defines the specialized extraction/composition/validation
// procedures and the infrastructure that executes them against the
// generation provider. Each subagent owns exactly one section of the shared
// project record; none ever writes outside its section.
package subagent

import (
	"encoding/json"
	"errors"
	"fmt"

	"craftfolio/internal/provider"
	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

// Subagent names. These double as the owner labels for state sections.
const (
	NameStory   = "story"
	NameDesign  = "design"
	NameQuality = "quality"
)

// Context is the input to a single subagent invocation: a read-only
// snapshot of project state plus the conversational trimmings.
type Context struct {
	// State is a snapshot; invocations must treat it as read-only.
	State *state.ProjectState

	// Message is the user's latest free-text input.
	Message string

	// Feedback carries iterative-refinement requests ("make it more
	// dramatic"). Empty on first composition.
	Feedback string

	// FocusAreas limits attention to specific fields or blocks.
	FocusAreas []string

	// PreserveElements names blocks the design subagent must not touch
	// during re-composition.
	PreserveElements []string

	// Profile is the business context (name, category, voice).
	Profile vocab.BusinessProfile
}

// DesignResult is the design subagent's payload.
type DesignResult struct {
	Tokens      state.DesignTokens `json:"tokens"`
	Blocks      []state.Block      `json:"blocks"`
	HeroImageID string             `json:"hero_image_id,omitempty"`
	Rationale   string             `json:"rationale,omitempty"`
}

// Result is the output of one subagent invocation. Confidence is required
// on every result; the type-specific payload fields are populated per
// subagent.
type Result struct {
	Subagent   string  `json:"subagent"`
	Confidence float64 `json:"confidence"`

	Narrative  *state.NarrativeExtraction `json:"narrative,omitempty"`
	Design     *DesignResult              `json:"design,omitempty"`
	Assessment *state.AssessmentSection   `json:"assessment,omitempty"`

	// NeedsClarification lists fields the story subagent could not
	// resolve; the front-end turns these into follow-up questions.
	NeedsClarification []string `json:"needs_clarification,omitempty"`

	// FromFallback marks results produced by the deterministic path.
	FromFallback bool `json:"from_fallback,omitempty"`
}

// Definition pairs a subagent's prompt template, output schema,
// context-builder, and result validator.
type Definition interface {
	// Name returns the subagent name (story, design, quality).
	Name() string

	// BuildPrompt renders the system and user prompts from the context.
	BuildPrompt(c Context) (system, user string)

	// Schema describes the structured output the provider must return.
	Schema() *provider.Schema

	// Parse validates raw provider output and converts it to a Result.
	// A non-nil error marks the output schema-invalid (retryable once).
	Parse(raw json.RawMessage, c Context) (*Result, error)

	// Fallback produces a deterministic result when the provider path is
	// exhausted. The second return is false when no deterministic
	// substitute exists (design, quality).
	Fallback(c Context) (*Result, bool)
}

// ErrSchemaInvalid wraps validation failures of provider output.
var ErrSchemaInvalid = errors.New("subagent output failed schema validation")

func schemaInvalid(name string, err error) error {
	return fmt.Errorf("%s: %w: %v", name, ErrSchemaInvalid, err)
}

// Band collapses a raw confidence estimate to the nearest of the five
// allowed bands: 0.2, 0.4, 0.6, 0.8, 1.0.
func Band(c float64) float64 {
	switch {
	case c <= 0:
		return 0.2
	case c >= 1:
		return 1.0
	}
	bands := []float64{0.2, 0.4, 0.6, 0.8, 1.0}
	best := bands[0]
	for _, b := range bands[1:] {
		if diff(c, b) < diff(c, best) {
			best = b
		}
	}
	return best
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
