package subagent

import (
	"encoding/json"
	"fmt"
	"strings"

	"craftfolio/internal/logging"
	"craftfolio/internal/provider"
	"craftfolio/internal/state"
	"craftfolio/internal/vocab"
)

// Design selects design tokens from closed enumerations and composes the
// ordered block list from the current narrative and media. There is no
// deterministic substitute for composition: when the provider path fails,
// the design section is simply left unchanged for the turn.
type Design struct {
	vocab *vocab.Provider
}

// NewDesign creates the design subagent definition.
func NewDesign(v *vocab.Provider) *Design {
	return &Design{vocab: v}
}

func (d *Design) Name() string { return NameDesign }

// tokenOptions is the closed set of values per design token. The design
// section never stores a value outside these lists.
var tokenOptions = map[string][]string{
	"layout":        {"single-column", "two-column", "gallery-grid", "timeline"},
	"spacing":       {"compact", "comfortable", "airy"},
	"heading_style": {"bold", "serif", "uppercase"},
	"body_size":     {"small", "medium", "large"},
	"accent_color":  {"slate", "brick", "forest", "ocean", "sand"},
	"background":    {"plain", "tinted", "contrast"},
	"image_display": {"full-bleed", "framed", "side-by-side"},
	"hero_style":    {"banner", "split", "minimal", "dramatic"},
}

var blockTypes = map[state.BlockType]bool{
	state.BlockHeroSection:   true,
	state.BlockBeforeAfter:   true,
	state.BlockParagraph:     true,
	state.BlockStats:         true,
	state.BlockMaterialsList: true,
	state.BlockTestimonial:   true,
	state.BlockCTASection:    true,
	state.BlockImageGallery:  true,
}

// imageBlocks are the block types that cannot exist without media.
var imageBlocks = map[state.BlockType]bool{
	state.BlockHeroSection:  true,
	state.BlockBeforeAfter:  true,
	state.BlockImageGallery: true,
}

// presetTokens maps a project character to its starting token bundle.
// Restoration work leans on side-by-side comparison, outdoor work on
// big full-bleed photography, technical work on dense readable text.
func presetTokens(ch vocab.Character) state.DesignTokens {
	switch ch {
	case vocab.CharacterRestoration:
		return state.DesignTokens{
			Layout: "two-column", Spacing: "comfortable", HeadingStyle: "serif",
			BodySize: "medium", AccentColor: "brick", Background: "tinted",
			ImageDisplay: "side-by-side", HeroStyle: "split",
		}
	case vocab.CharacterOutdoor:
		return state.DesignTokens{
			Layout: "single-column", Spacing: "airy", HeadingStyle: "bold",
			BodySize: "large", AccentColor: "forest", Background: "plain",
			ImageDisplay: "full-bleed", HeroStyle: "dramatic",
		}
	case vocab.CharacterTechnical:
		return state.DesignTokens{
			Layout: "single-column", Spacing: "compact", HeadingStyle: "uppercase",
			BodySize: "small", AccentColor: "ocean", Background: "contrast",
			ImageDisplay: "framed", HeroStyle: "minimal",
		}
	default: // new-build
		return state.DesignTokens{
			Layout: "gallery-grid", Spacing: "airy", HeadingStyle: "bold",
			BodySize: "medium", AccentColor: "slate", Background: "plain",
			ImageDisplay: "full-bleed", HeroStyle: "banner",
		}
	}
}

type designWire struct {
	Tokens struct {
		Layout       string `json:"layout"`
		Spacing      string `json:"spacing"`
		HeadingStyle string `json:"heading_style"`
		BodySize     string `json:"body_size"`
		AccentColor  string `json:"accent_color"`
		Background   string `json:"background"`
		ImageDisplay string `json:"image_display"`
		HeroStyle    string `json:"hero_style"`
	} `json:"tokens"`
	Blocks []struct {
		Type     string   `json:"type"`
		Text     string   `json:"text"`
		Items    []string `json:"items"`
		ImageIDs []string `json:"image_ids"`
	} `json:"blocks"`
	HeroImageID string  `json:"hero_image_id"`
	Rationale   string  `json:"rationale"`
	Confidence  float64 `json:"confidence"`
}

// BuildPrompt renders the composition prompt: narrative, image inventory
// grouped by type, business voice, preset bundle for the project's
// character, and any iteration feedback with its preserve list.
func (d *Design) BuildPrompt(c Context) (string, string) {
	var sys strings.Builder
	sys.WriteString("You compose a visual layout for a service-business project page.\n")
	sys.WriteString("Choose every token from its allowed options only; never invent styling.\n")
	sys.WriteString("Compose blocks in reading order. Reference images only by the ids provided.\n")
	if len(c.State.Media.Images) == 0 {
		sys.WriteString("No images exist: use only text block types (paragraph, stats, materials-list, testimonial, cta-section).\n")
	}
	if c.Feedback != "" {
		sys.WriteString("This is an iteration: adjust only the tokens and blocks the feedback implicates, keep everything else as it is.\n")
	}
	if c.Profile.Voice != "" {
		fmt.Fprintf(&sys, "Business voice: %s.\n", c.Profile.Voice)
	}

	var user strings.Builder
	narrative, _ := json.Marshal(c.State.Narrative)
	user.WriteString("Project narrative: " + string(narrative) + "\n")

	character := d.vocab.Current().CharacterOf(c.State.Narrative.ProjectType)
	preset, _ := json.Marshal(presetTokens(character))
	fmt.Fprintf(&user, "Project character: %s. Starting token bundle: %s\n", character, preset)

	byType := c.State.Media.ByType()
	for _, t := range []state.ImageType{state.ImageBefore, state.ImageAfter, state.ImageProgress, state.ImageDetail} {
		if imgs := byType[t]; len(imgs) > 0 {
			ids := make([]string, len(imgs))
			for i, img := range imgs {
				ids[i] = img.ID
			}
			fmt.Fprintf(&user, "%s images: %s\n", t, strings.Join(ids, ", "))
		}
	}

	if prior := c.State.Design; len(prior.Blocks) > 0 {
		current, _ := json.Marshal(prior)
		user.WriteString("Current design: " + string(current) + "\n")
	}
	if c.Feedback != "" {
		user.WriteString("Feedback: " + c.Feedback + "\n")
	}
	if len(c.PreserveElements) > 0 {
		user.WriteString("Do not change these blocks: " + strings.Join(c.PreserveElements, ", ") + "\n")
	}
	return sys.String(), user.String()
}

// Schema returns the enforced output schema with every token as a closed
// enumeration.
func (d *Design) Schema() *provider.Schema {
	tokenProps := make(map[string]*provider.Schema, len(tokenOptions))
	for name, opts := range tokenOptions {
		tokenProps[name] = &provider.Schema{Type: "string", Enum: opts}
	}
	blockTypeNames := make([]string, 0, len(blockTypes))
	for t := range blockTypes {
		blockTypeNames = append(blockTypeNames, string(t))
	}
	str := &provider.Schema{Type: "string"}
	strList := &provider.Schema{Type: "array", Items: str}
	return &provider.Schema{
		Type: "object",
		Properties: map[string]*provider.Schema{
			"tokens": {Type: "object", Properties: tokenProps},
			"blocks": {Type: "array", Items: &provider.Schema{
				Type: "object",
				Properties: map[string]*provider.Schema{
					"type":      {Type: "string", Enum: blockTypeNames},
					"text":      str,
					"items":     strList,
					"image_ids": strList,
				},
				Required: []string{"type"},
			}},
			"hero_image_id": str,
			"rationale":     str,
			"confidence":    {Type: "number"},
		},
		Required: []string{"tokens", "blocks", "confidence"},
	}
}

// Parse validates provider output against the closed enumerations and
// normalizes it: unset tokens are filled from the prior design (iteration)
// or the character preset (first composition), image-dependent blocks are
// stripped when no media exists, preserved blocks are re-imposed verbatim,
// and the hero image id is checked against the inventory.
func (d *Design) Parse(raw json.RawMessage, c Context) (*Result, error) {
	var w designWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, schemaInvalid(NameDesign, err)
	}
	if w.Confidence <= 0 || w.Confidence > 1 {
		return nil, schemaInvalid(NameDesign, fmt.Errorf("confidence %v out of range", w.Confidence))
	}

	tokens := state.DesignTokens{
		Layout:       w.Tokens.Layout,
		Spacing:      w.Tokens.Spacing,
		HeadingStyle: w.Tokens.HeadingStyle,
		BodySize:     w.Tokens.BodySize,
		AccentColor:  w.Tokens.AccentColor,
		Background:   w.Tokens.Background,
		ImageDisplay: w.Tokens.ImageDisplay,
		HeroStyle:    w.Tokens.HeroStyle,
	}
	if err := validateTokens(tokens); err != nil {
		return nil, schemaInvalid(NameDesign, err)
	}

	base := c.State.Design.Tokens
	if base == (state.DesignTokens{}) {
		base = presetTokens(d.vocab.Current().CharacterOf(c.State.Narrative.ProjectType))
	}
	tokens = fillTokens(tokens, base)

	knownImages := make(map[string]bool, len(c.State.Media.Images))
	for _, img := range c.State.Media.Images {
		knownImages[img.ID] = true
	}

	blocks := make([]state.Block, 0, len(w.Blocks))
	for _, b := range w.Blocks {
		bt := state.BlockType(b.Type)
		if !blockTypes[bt] {
			return nil, schemaInvalid(NameDesign, fmt.Errorf("unknown block type %q", b.Type))
		}
		if imageBlocks[bt] && len(c.State.Media.Images) == 0 {
			continue // text-only degradation with zero images
		}
		ids := make([]string, 0, len(b.ImageIDs))
		for _, id := range b.ImageIDs {
			if knownImages[id] {
				ids = append(ids, id)
			}
		}
		blocks = append(blocks, state.Block{
			Type:     bt,
			Text:     strings.TrimSpace(b.Text),
			Items:    b.Items,
			ImageIDs: ids,
		})
	}
	if len(blocks) == 0 {
		blocks = textOnlyBlocks(c.State)
	}

	blocks = imposePreserved(blocks, c.State.Design.Blocks, c.PreserveElements)

	hero := w.HeroImageID
	if hero != "" && !knownImages[hero] {
		hero = ""
	}
	if hero == "" {
		hero = defaultHero(c.State.Media)
	}

	return &Result{
		Subagent:   NameDesign,
		Confidence: w.Confidence,
		Design: &DesignResult{
			Tokens:      tokens,
			Blocks:      blocks,
			HeroImageID: hero,
			Rationale:   strings.TrimSpace(w.Rationale),
		},
	}, nil
}

// Fallback reports no deterministic substitute: a failed composition leaves
// the design section unchanged for the turn.
func (d *Design) Fallback(c Context) (*Result, bool) {
	logging.SubagentDebug("design: provider path failed, no update this turn")
	return nil, false
}

func validateTokens(t state.DesignTokens) error {
	check := func(name, val string) error {
		if val == "" {
			return nil
		}
		for _, opt := range tokenOptions[name] {
			if val == opt {
				return nil
			}
		}
		return fmt.Errorf("token %s has value %q outside its allowed options", name, val)
	}
	for name, val := range map[string]string{
		"layout": t.Layout, "spacing": t.Spacing, "heading_style": t.HeadingStyle,
		"body_size": t.BodySize, "accent_color": t.AccentColor, "background": t.Background,
		"image_display": t.ImageDisplay, "hero_style": t.HeroStyle,
	} {
		if err := check(name, val); err != nil {
			return err
		}
	}
	return nil
}

// fillTokens completes unset token fields from the base bundle.
func fillTokens(t, base state.DesignTokens) state.DesignTokens {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return state.DesignTokens{
		Layout:       pick(t.Layout, base.Layout),
		Spacing:      pick(t.Spacing, base.Spacing),
		HeadingStyle: pick(t.HeadingStyle, base.HeadingStyle),
		BodySize:     pick(t.BodySize, base.BodySize),
		AccentColor:  pick(t.AccentColor, base.AccentColor),
		Background:   pick(t.Background, base.Background),
		ImageDisplay: pick(t.ImageDisplay, base.ImageDisplay),
		HeroStyle:    pick(t.HeroStyle, base.HeroStyle),
	}
}

// imposePreserved re-imposes preserved blocks from the prior design,
// untouched in position and content, over a freshly composed list.
func imposePreserved(blocks, prior []state.Block, preserve []string) []state.Block {
	if len(preserve) == 0 || len(prior) == 0 {
		return blocks
	}
	preserved := make(map[state.BlockType]bool, len(preserve))
	for _, p := range preserve {
		preserved[state.BlockType(strings.TrimSpace(p))] = true
	}

	out := make([]state.Block, 0, len(blocks))
	for _, b := range blocks {
		if !preserved[b.Type] {
			out = append(out, b)
		}
	}
	for i, b := range prior {
		if !preserved[b.Type] {
			continue
		}
		at := i
		if at > len(out) {
			at = len(out)
		}
		out = append(out[:at], append([]state.Block{b}, out[at:]...)...)
	}
	return out
}

// textOnlyBlocks is the minimal valid composition when the provider
// returned nothing usable: a paragraph from the narrative, a materials
// list when one exists, and a closing call to action.
func textOnlyBlocks(s *state.ProjectState) []state.Block {
	text := s.Narrative.Solution
	if text == "" {
		text = s.Narrative.Problem
	}
	blocks := []state.Block{{Type: state.BlockParagraph, Text: text}}
	if len(s.Narrative.Materials) > 0 {
		blocks = append(blocks, state.Block{Type: state.BlockMaterialsList, Items: s.Narrative.Materials})
	}
	blocks = append(blocks, state.Block{Type: state.BlockCTASection})
	return blocks
}

// defaultHero prefers an after shot, then the first image.
func defaultHero(m state.MediaSection) string {
	for _, img := range m.Images {
		if img.Type == state.ImageAfter {
			return img.ID
		}
	}
	if len(m.Images) > 0 {
		return m.Images[0].ID
	}
	return ""
}
