package subagent

import (
	"encoding/json"
	"errors"
	"testing"

	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

func newDesign() *Design {
	return NewDesign(vocab.NewProvider(vocab.Default()))
}

func designContext() Context {
	s := state.New("p")
	s.Narrative.ProjectType = "chimney-rebuild"
	s.Narrative.Solution = "rebuilt from the roofline up"
	s.Narrative.Materials = []string{"red brick"}
	s.Media.Images = []state.Image{
		{ID: "img-before", Type: state.ImageBefore},
		{ID: "img-after", Type: state.ImageAfter},
	}
	return Context{State: s, Message: "design the page"}
}

func TestDesign_Parse_Valid(t *testing.T) {
	d := newDesign()
	raw := json.RawMessage(`{
		"tokens": {"layout": "two-column", "accent_color": "brick"},
		"blocks": [
			{"type": "hero-section", "image_ids": ["img-after"]},
			{"type": "before-after", "image_ids": ["img-before", "img-after"]},
			{"type": "paragraph", "text": "Rebuilt from the roofline up."}
		],
		"hero_image_id": "img-after",
		"confidence": 0.8
	}`)

	r, err := d.Parse(raw, designContext())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Design.Tokens.Layout != "two-column" {
		t.Errorf("layout = %q", r.Design.Tokens.Layout)
	}
	// Unset tokens fill from the restoration preset.
	if r.Design.Tokens.ImageDisplay != "side-by-side" {
		t.Errorf("image_display = %q, want preset side-by-side", r.Design.Tokens.ImageDisplay)
	}
	if len(r.Design.Blocks) != 3 {
		t.Errorf("block count = %d", len(r.Design.Blocks))
	}
	if r.Design.HeroImageID != "img-after" {
		t.Errorf("hero = %q", r.Design.HeroImageID)
	}
}

func TestDesign_Parse_TokenOutsideEnumIsSchemaInvalid(t *testing.T) {
	d := newDesign()
	raw := json.RawMessage(`{
		"tokens": {"layout": "masonry-grid"},
		"blocks": [{"type": "paragraph"}],
		"confidence": 0.8
	}`)
	if _, err := d.Parse(raw, designContext()); !errors.Is(err, ErrSchemaInvalid) {
		t.Errorf("invalid token error = %v", err)
	}
}

func TestDesign_Parse_UnknownBlockTypeIsSchemaInvalid(t *testing.T) {
	d := newDesign()
	raw := json.RawMessage(`{
		"tokens": {},
		"blocks": [{"type": "carousel"}],
		"confidence": 0.8
	}`)
	if _, err := d.Parse(raw, designContext()); !errors.Is(err, ErrSchemaInvalid) {
		t.Errorf("unknown block type error = %v", err)
	}
}

func TestDesign_Parse_ZeroImagesDegradesToTextBlocks(t *testing.T) {
	d := newDesign()
	c := designContext()
	c.State.Media.Images = nil

	raw := json.RawMessage(`{
		"tokens": {},
		"blocks": [
			{"type": "hero-section", "image_ids": ["img-after"]},
			{"type": "image-gallery"}
		],
		"hero_image_id": "img-after",
		"confidence": 0.6
	}`)

	r, err := d.Parse(raw, c)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, b := range r.Design.Blocks {
		switch b.Type {
		case state.BlockHeroSection, state.BlockBeforeAfter, state.BlockImageGallery:
			t.Errorf("image block %s survived with zero images", b.Type)
		}
	}
	if len(r.Design.Blocks) == 0 {
		t.Error("degraded composition is empty")
	}
	if r.Design.HeroImageID != "" {
		t.Errorf("hero set with zero images: %q", r.Design.HeroImageID)
	}
}

func TestDesign_Parse_UnknownImageIDsFiltered(t *testing.T) {
	d := newDesign()
	raw := json.RawMessage(`{
		"tokens": {},
		"blocks": [{"type": "image-gallery", "image_ids": ["img-after", "hallucinated"]}],
		"confidence": 0.6
	}`)

	r, err := d.Parse(raw, designContext())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.Design.Blocks[0].ImageIDs) != 1 || r.Design.Blocks[0].ImageIDs[0] != "img-after" {
		t.Errorf("image ids = %v", r.Design.Blocks[0].ImageIDs)
	}
}

func TestDesign_Parse_PreservedBlocksSurviveVerbatim(t *testing.T) {
	d := newDesign()
	c := designContext()
	original := state.Block{Type: state.BlockTestimonial, Text: "Best masons in town - J. Alvarez"}
	c.State.Design.Blocks = []state.Block{
		{Type: state.BlockHeroSection, ImageIDs: []string{"img-after"}},
		original,
	}
	c.PreserveElements = []string{string(state.BlockTestimonial)}

	raw := json.RawMessage(`{
		"tokens": {},
		"blocks": [
			{"type": "hero-section", "image_ids": ["img-before"]},
			{"type": "testimonial", "text": "A rewritten quote"},
			{"type": "cta-section"}
		],
		"confidence": 0.8
	}`)

	r, err := d.Parse(raw, c)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var got *state.Block
	for i := range r.Design.Blocks {
		if r.Design.Blocks[i].Type == state.BlockTestimonial {
			got = &r.Design.Blocks[i]
		}
	}
	if got == nil {
		t.Fatal("preserved block missing from composition")
	}
	if got.Text != original.Text {
		t.Errorf("preserved block rewritten: %q", got.Text)
	}
	// It keeps its prior position in the list.
	if r.Design.Blocks[1].Type != state.BlockTestimonial {
		t.Errorf("preserved block moved: %v", r.Design.Blocks)
	}
}

func TestDesign_Parse_DefaultHeroPrefersAfterShot(t *testing.T) {
	d := newDesign()
	raw := json.RawMessage(`{
		"tokens": {},
		"blocks": [{"type": "paragraph", "text": "x"}],
		"confidence": 0.6
	}`)

	r, err := d.Parse(raw, designContext())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Design.HeroImageID != "img-after" {
		t.Errorf("default hero = %q, want img-after", r.Design.HeroImageID)
	}
}

func TestDesign_NoFallback(t *testing.T) {
	d := newDesign()
	if _, ok := d.Fallback(designContext()); ok {
		t.Error("design must not have a deterministic fallback")
	}
}

func TestPresetTokens_CoverEveryCharacter(t *testing.T) {
	for _, ch := range []vocab.Character{
		vocab.CharacterRestoration, vocab.CharacterNewBuild,
		vocab.CharacterOutdoor, vocab.CharacterTechnical,
	} {
		tokens := presetTokens(ch)
		if err := validateTokens(tokens); err != nil {
			t.Errorf("preset for %s invalid: %v", ch, err)
		}
		if tokens.Layout == "" || tokens.HeroStyle == "" {
			t.Errorf("preset for %s incomplete: %+v", ch, tokens)
		}
	}
}

func TestQuality_Parse(t *testing.T) {
	q := NewQuality()
	raw := json.RawMessage(`{
		"missing_fields": ["title"],
		"weak_fields": ["description"],
		"tier": "almost-there",
		"suggestions": ["a", "b", "c", "d", "e", "f", "g"],
		"confidence": 0.8
	}`)

	r, err := q.Parse(raw, designContext())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Assessment.Tier != state.TierAlmostThere {
		t.Errorf("tier = %s", r.Assessment.Tier)
	}
	if len(r.Assessment.Suggestions) != 5 {
		t.Errorf("suggestions not capped: %d", len(r.Assessment.Suggestions))
	}
}

func TestQuality_Parse_UnknownTier(t *testing.T) {
	q := NewQuality()
	raw := json.RawMessage(`{"tier": "perfect", "confidence": 0.8}`)
	if _, err := q.Parse(raw, designContext()); !errors.Is(err, ErrSchemaInvalid) {
		t.Errorf("unknown tier error = %v", err)
	}
}

func TestQuality_NoFallback(t *testing.T) {
	if _, ok := NewQuality().Fallback(designContext()); ok {
		t.Error("quality must not have a deterministic fallback")
	}
}
