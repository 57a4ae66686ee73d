package subagent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"craftfolio/internal/provider"
	"craftfolio/internal/state"
)

// Quality assesses publish-readiness. Its output is strictly advisory:
// nothing downstream may block publishing on it, and callers must always
// present "publish anyway" as a valid path.
type Quality struct{}

// NewQuality creates the quality subagent definition.
func NewQuality() *Quality { return &Quality{} }

func (q *Quality) Name() string { return NameQuality }

type qualityWire struct {
	MissingFields []string `json:"missing_fields"`
	WeakFields    []string `json:"weak_fields"`
	Tier          string   `json:"tier"`
	Suggestions   []string `json:"suggestions"`
	Confidence    float64  `json:"confidence"`
}

// BuildPrompt renders the assessment prompt over the full state snapshot.
func (q *Quality) BuildPrompt(c Context) (string, string) {
	var sys strings.Builder
	sys.WriteString("You review a service-project draft for publish-readiness.\n")
	sys.WriteString("Report missing fields, weak fields, a readiness tier, and concrete suggestions.\n")
	sys.WriteString("Your review is advisory: never phrase suggestions as requirements or blockers.\n")

	snapshot, _ := json.Marshal(struct {
		Narrative state.NarrativeSection `json:"narrative"`
		Design    state.DesignSection    `json:"design"`
		Images    int                    `json:"image_count"`
		Hero      string                 `json:"hero_image_id"`
	}{c.State.Narrative, c.State.Design, len(c.State.Media.Images), c.State.Media.HeroImageID})

	return sys.String(), "Project draft:\n" + string(snapshot)
}

// Schema returns the enforced assessment schema.
func (q *Quality) Schema() *provider.Schema {
	str := &provider.Schema{Type: "string"}
	strList := &provider.Schema{Type: "array", Items: str}
	return &provider.Schema{
		Type: "object",
		Properties: map[string]*provider.Schema{
			"missing_fields": strList,
			"weak_fields":    strList,
			"tier": {Type: "string", Enum: []string{
				string(state.TierNeedsWork), string(state.TierAlmostThere), string(state.TierReady),
			}},
			"suggestions": strList,
			"confidence":  {Type: "number"},
		},
		Required: []string{"tier", "confidence"},
	}
}

// Parse validates the assessment and caps suggestions at a readable count.
func (q *Quality) Parse(raw json.RawMessage, c Context) (*Result, error) {
	var w qualityWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, schemaInvalid(NameQuality, err)
	}
	if w.Confidence <= 0 || w.Confidence > 1 {
		return nil, schemaInvalid(NameQuality, fmt.Errorf("confidence %v out of range", w.Confidence))
	}
	tier := state.ReadinessTier(w.Tier)
	switch tier {
	case state.TierNeedsWork, state.TierAlmostThere, state.TierReady:
	default:
		return nil, schemaInvalid(NameQuality, fmt.Errorf("unknown readiness tier %q", w.Tier))
	}

	suggestions := dedupe(w.Suggestions)
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}

	return &Result{
		Subagent:   NameQuality,
		Confidence: w.Confidence,
		Assessment: &state.AssessmentSection{
			MissingFields: dedupe(w.MissingFields),
			WeakFields:    dedupe(w.WeakFields),
			Tier:          tier,
			Suggestions:   suggestions,
			AssessedAt:    time.Now().UTC(),
		},
	}, nil
}

// Fallback reports no deterministic substitute. A failed assessment is not
// an obstacle: publishing was never gated on it in the first place.
func (q *Quality) Fallback(c Context) (*Result, bool) { return nil, false }
