package subagent

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"craftfolio/internal/fallback"
	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

func newStory() *Story {
	v := vocab.NewProvider(vocab.Default())
	return NewStory(v, fallback.New(v))
}

func storyContext(msg string) Context {
	return Context{State: state.New("p"), Message: msg}
}

func TestStory_Parse_Valid(t *testing.T) {
	s := newStory()
	raw := json.RawMessage(`{
		"project_type": "chimney-rebuild",
		"problem": "crown was crumbling",
		"solution": "rebuilt from the roofline",
		"materials": ["red brick", "mortar"],
		"techniques": ["tuckpointing"],
		"city": "Denver",
		"state": "co",
		"duration": "3 days",
		"confidence": 0.75
	}`)

	r, err := s.Parse(raw, storyContext("msg"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Narrative.ProjectType != "chimney-rebuild" {
		t.Errorf("project type = %q", r.Narrative.ProjectType)
	}
	if r.Narrative.State != "CO" {
		t.Errorf("state not uppercased: %q", r.Narrative.State)
	}
	// 0.75 collapses to the nearest allowed band.
	if r.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", r.Confidence)
	}
}

func TestStory_Parse_ConfidenceOutOfRange(t *testing.T) {
	s := newStory()
	for _, raw := range []string{`{"confidence": 0}`, `{"confidence": 1.5}`, `{}`} {
		if _, err := s.Parse(json.RawMessage(raw), storyContext("msg")); !errors.Is(err, ErrSchemaInvalid) {
			t.Errorf("Parse(%s) error = %v, want schema-invalid", raw, err)
		}
	}
}

func TestStory_Parse_UnknownTypeDroppedWithClarification(t *testing.T) {
	s := newStory()
	raw := json.RawMessage(`{"project_type": "moon-base", "confidence": 0.8}`)

	r, err := s.Parse(raw, storyContext("msg"))
	if err != nil {
		t.Fatalf("unknown type should not be a parse error: %v", err)
	}
	if r.Narrative.ProjectType != "" {
		t.Errorf("unknown type kept: %q", r.Narrative.ProjectType)
	}
	found := false
	for _, c := range r.NeedsClarification {
		if c == state.FieldProjectType {
			found = true
		}
	}
	if !found {
		t.Error("no clarification requested for dropped type")
	}
}

func TestStory_Parse_TermInBothListsBecomesTechnique(t *testing.T) {
	s := newStory()
	raw := json.RawMessage(`{
		"materials": ["mortar", "tuckpointing"],
		"techniques": ["tuckpointing"],
		"confidence": 0.6
	}`)

	r, err := s.Parse(raw, storyContext("msg"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, m := range r.Narrative.Materials {
		if m == "tuckpointing" {
			t.Error("term kept in both lists")
		}
	}
	if len(r.Narrative.Techniques) != 1 || r.Narrative.Techniques[0] != "tuckpointing" {
		t.Errorf("techniques = %v", r.Narrative.Techniques)
	}
}

func TestStory_Fallback(t *testing.T) {
	s := newStory()
	r, ok := s.Fallback(storyContext("Rebuilt the chimney in Denver, CO with red brick. Took 3 days."))
	if !ok {
		t.Fatal("story fallback must always produce a result")
	}
	if !r.FromFallback {
		t.Error("fallback result not marked")
	}
	if r.Narrative.ProjectType != "chimney-rebuild" {
		t.Errorf("fallback type = %q", r.Narrative.ProjectType)
	}
	// Problem/solution are beyond the deterministic rules; ask for them.
	found := false
	for _, c := range r.NeedsClarification {
		if c == state.FieldProblem {
			found = true
		}
	}
	if !found {
		t.Errorf("clarifications = %v, want problem listed", r.NeedsClarification)
	}
}

func TestStory_BuildPrompt_IncludesVocabAndPriorFacts(t *testing.T) {
	s := newStory()
	c := storyContext("we added new flashing")
	c.State.Narrative.ProjectType = "roof-replacement"

	system, user := s.BuildPrompt(c)
	if !strings.Contains(user, "chimney-rebuild") {
		t.Error("prompt missing project-type enumeration")
	}
	if !strings.Contains(user, "roof-replacement") {
		t.Error("prompt missing prior facts")
	}
	if !strings.Contains(system, "confidence") {
		t.Error("system prompt missing confidence instruction")
	}
}

func TestBand(t *testing.T) {
	cases := map[float64]float64{
		-0.3: 0.2, 0.0: 0.2, 0.25: 0.2, 0.31: 0.4, 0.5: 0.4,
		0.65: 0.6, 0.75: 0.8, 0.93: 1.0, 1.0: 1.0, 2.0: 1.0,
	}
	for in, want := range cases {
		if got := Band(in); got != want {
			t.Errorf("Band(%v) = %v, want %v", in, got, want)
		}
	}
}
