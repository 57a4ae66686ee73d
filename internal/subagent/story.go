package subagent

import (
	"encoding/json"
	"fmt"
	"strings"

	"craftfolio/internal/fallback"
	"craftfolio/internal/logging"
	"craftfolio/internal/provider"
	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

// Story converts free-text narrative into the narrative section. Primary
// path is the generation provider with an enforced schema; the deterministic
// extractor covers provider failure.
type Story struct {
	vocab     *vocab.Provider
	extractor *fallback.Extractor
}

// NewStory creates the story subagent definition.
func NewStory(v *vocab.Provider, extractor *fallback.Extractor) *Story {
	return &Story{vocab: v, extractor: extractor}
}

func (s *Story) Name() string { return NameStory }

// storyWire is the provider's output shape for story extraction.
type storyWire struct {
	ProjectType        string   `json:"project_type"`
	Problem            string   `json:"problem"`
	Solution           string   `json:"solution"`
	Materials          []string `json:"materials"`
	Techniques         []string `json:"techniques"`
	City               string   `json:"city"`
	State              string   `json:"state"`
	Duration           string   `json:"duration"`
	ProudOf            string   `json:"proud_of"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Tags               []string `json:"tags"`
	Confidence         float64  `json:"confidence"`
	NeedsClarification []string `json:"needs_clarification"`
}

// BuildPrompt renders the extraction prompt: field definitions, the valid
// project-type enumeration, trade vocabulary, and the conversation state so
// far, so repeat mentions refine rather than contradict earlier turns.
func (s *Story) BuildPrompt(c Context) (string, string) {
	v := s.vocab.Current()

	var sys strings.Builder
	sys.WriteString("You extract structured facts about a completed service project from a contractor's message.\n")
	sys.WriteString("Only report facts stated or strongly implied. Leave unknown fields empty.\n")
	sys.WriteString("Keep materials (physical goods) and techniques (methods of work) strictly separate, with no term in both lists.\n")
	sys.WriteString("Set confidence to how certain the overall extraction is, as one of 0.2, 0.4, 0.6, 0.8, 1.0.\n")
	sys.WriteString("List any field you could not resolve unambiguously in needs_clarification.\n")
	if c.Profile.Name != "" {
		fmt.Fprintf(&sys, "The business is %s (%s).\n", c.Profile.Name, c.Profile.Category)
	}

	var user strings.Builder
	user.WriteString("Valid project types (use the slug): ")
	for i, pt := range v.ProjectTypes {
		if i > 0 {
			user.WriteString(", ")
		}
		fmt.Fprintf(&user, "%s (%s)", pt.Slug, pt.Display)
	}
	user.WriteString("\nKnown materials: " + strings.Join(v.Materials, ", "))
	user.WriteString("\nKnown techniques: " + strings.Join(v.Techniques, ", "))

	if n := c.State.Narrative; n.ProjectType != "" || n.Problem != "" || len(n.Materials) > 0 {
		facts, _ := json.Marshal(n)
		user.WriteString("\nFacts recorded so far: " + string(facts))
	}
	if len(c.FocusAreas) > 0 {
		user.WriteString("\nFocus on: " + strings.Join(c.FocusAreas, ", "))
	}
	user.WriteString("\n\nContractor's message:\n" + c.Message)
	return sys.String(), user.String()
}

// Schema returns the enforced output schema. The project type is a closed
// enumeration over the vocabulary's slugs.
func (s *Story) Schema() *provider.Schema {
	v := s.vocab.Current()
	slugs := make([]string, 0, len(v.ProjectTypes)+1)
	slugs = append(slugs, "")
	for _, pt := range v.ProjectTypes {
		slugs = append(slugs, pt.Slug)
	}

	str := &provider.Schema{Type: "string"}
	strList := &provider.Schema{Type: "array", Items: str}
	return &provider.Schema{
		Type: "object",
		Properties: map[string]*provider.Schema{
			"project_type":        {Type: "string", Enum: slugs},
			"problem":             str,
			"solution":            str,
			"materials":           strList,
			"techniques":          strList,
			"city":                str,
			"state":               str,
			"duration":            str,
			"proud_of":            str,
			"title":               str,
			"description":         str,
			"tags":                strList,
			"confidence":          {Type: "number", Description: "one of 0.2, 0.4, 0.6, 0.8, 1.0"},
			"needs_clarification": strList,
		},
		Required: []string{"confidence"},
	}
}

// Parse validates provider output and normalizes it into an extraction.
func (s *Story) Parse(raw json.RawMessage, c Context) (*Result, error) {
	var w storyWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, schemaInvalid(NameStory, err)
	}
	if w.Confidence <= 0 || w.Confidence > 1 {
		return nil, schemaInvalid(NameStory, fmt.Errorf("confidence %v out of range", w.Confidence))
	}

	clarify := append([]string(nil), w.NeedsClarification...)

	slug := vocab.NormalizeSlug(w.ProjectType)
	if slug != "" {
		if _, ok := s.vocab.Current().TypeBySlug(slug); !ok {
			// Unknown type is not worth a retry; drop it and ask.
			logging.SubagentDebug("story: dropping unknown project type %q", slug)
			slug = ""
			clarify = append(clarify, state.FieldProjectType)
		}
	}

	materials, techniques := separateTerms(w.Materials, w.Techniques)

	ext := &state.NarrativeExtraction{
		ProjectType: slug,
		Problem:     strings.TrimSpace(w.Problem),
		Solution:    strings.TrimSpace(w.Solution),
		Materials:   materials,
		Techniques:  techniques,
		City:        strings.TrimSpace(w.City),
		State:       strings.ToUpper(strings.TrimSpace(w.State)),
		Duration:    strings.TrimSpace(w.Duration),
		ProudOf:     strings.TrimSpace(w.ProudOf),
		Title:       strings.TrimSpace(w.Title),
		Description: strings.TrimSpace(w.Description),
		Tags:        state.UnionStrings(nil, w.Tags),
		Confidence:  Band(w.Confidence),
	}

	return &Result{
		Subagent:           NameStory,
		Confidence:         ext.Confidence,
		Narrative:          ext,
		NeedsClarification: dedupe(clarify),
	}, nil
}

// Fallback runs the deterministic extractor. It always produces a result;
// an extraction with nothing in it still yields clarification requests.
func (s *Story) Fallback(c Context) (*Result, bool) {
	ext := s.extractor.Extract(c.Message)

	var clarify []string
	if ext.ProjectType == "" && c.State.Narrative.ProjectType == "" {
		clarify = append(clarify, state.FieldProjectType)
	}
	if ext.Problem == "" && ext.Solution == "" &&
		c.State.Narrative.Problem == "" && c.State.Narrative.Solution == "" {
		clarify = append(clarify, state.FieldProblem)
	}

	return &Result{
		Subagent:           NameStory,
		Confidence:         ext.Confidence,
		Narrative:          &ext,
		NeedsClarification: clarify,
		FromFallback:       true,
	}, true
}

// separateTerms de-duplicates both lists and keeps them mutually
// exclusive. A term reported as both is treated as a technique, since
// techniques are the rarer, more specific vocabulary.
func separateTerms(materials, techniques []string) ([]string, []string) {
	tset := make(map[string]bool, len(techniques))
	outT := state.UnionStrings(nil, techniques)
	for _, t := range outT {
		tset[strings.ToLower(t)] = true
	}
	var m []string
	for _, v := range materials {
		if !tset[strings.ToLower(strings.TrimSpace(v))] {
			m = append(m, v)
		}
	}
	return state.UnionStrings(nil, m), outT
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
