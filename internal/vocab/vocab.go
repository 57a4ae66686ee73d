// Package vocab holds the trade vocabulary the extraction pipeline works
// against: known project types, material keywords, and technique keywords.
// The vocabulary ships with built-in defaults and can be overridden from a
// YAML file, with hot reload via fsnotify.
package vocab

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Character groups project types by the visual treatment they tend to want.
type Character string

const (
	CharacterRestoration Character = "restoration"
	CharacterNewBuild    Character = "new-build"
	CharacterOutdoor     Character = "outdoor"
	CharacterTechnical   Character = "technical"
)

// ProjectType is one entry in the closed project-type enumeration.
type ProjectType struct {
	Slug      string    `yaml:"slug"`
	Display   string    `yaml:"display"`
	Character Character `yaml:"character"`
}

// Vocabulary is the full trade vocabulary.
type Vocabulary struct {
	ProjectTypes []ProjectType `yaml:"project_types"`
	Materials    []string      `yaml:"materials"`
	Techniques   []string      `yaml:"techniques"`
}

// BusinessProfile is the business context injected into subagent prompts.
type BusinessProfile struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Voice    string `yaml:"voice"`
}

// Default returns the built-in vocabulary used when no file is configured.
func Default() *Vocabulary {
	return &Vocabulary{
		ProjectTypes: []ProjectType{
			{Slug: "chimney-rebuild", Display: "Chimney Rebuild", Character: CharacterRestoration},
			{Slug: "chimney-repair", Display: "Chimney Repair", Character: CharacterRestoration},
			{Slug: "brick-restoration", Display: "Brick Restoration", Character: CharacterRestoration},
			{Slug: "tuckpointing", Display: "Tuckpointing", Character: CharacterRestoration},
			{Slug: "kitchen-remodel", Display: "Kitchen Remodel", Character: CharacterNewBuild},
			{Slug: "bathroom-remodel", Display: "Bathroom Remodel", Character: CharacterNewBuild},
			{Slug: "deck-construction", Display: "Deck Construction", Character: CharacterOutdoor},
			{Slug: "patio-installation", Display: "Patio Installation", Character: CharacterOutdoor},
			{Slug: "fence-installation", Display: "Fence Installation", Character: CharacterOutdoor},
			{Slug: "roof-replacement", Display: "Roof Replacement", Character: CharacterTechnical},
			{Slug: "hvac-installation", Display: "HVAC Installation", Character: CharacterTechnical},
			{Slug: "electrical-upgrade", Display: "Electrical Upgrade", Character: CharacterTechnical},
			{Slug: "foundation-repair", Display: "Foundation Repair", Character: CharacterTechnical},
		},
		Materials: []string{
			"brick", "red brick", "mortar", "concrete", "stone", "flagstone",
			"cedar", "pressure-treated lumber", "composite decking", "pavers",
			"tile", "granite", "quartz", "drywall", "copper pipe", "pex",
			"asphalt shingles", "metal roofing", "flashing", "rebar",
		},
		Techniques: []string{
			"tuckpointing", "repointing", "flashing repair", "waterproofing",
			"framing", "joist hanging", "grading", "compacting",
			"tile setting", "grouting", "soldering", "crown molding",
			"parging", "sealing", "demolition", "underlayment",
		},
	}
}

// Load reads a vocabulary YAML file. Missing sections fall back to the
// defaults so an override file can replace only the project types.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	def := Default()
	if len(v.ProjectTypes) == 0 {
		v.ProjectTypes = def.ProjectTypes
	}
	if len(v.Materials) == 0 {
		v.Materials = def.Materials
	}
	if len(v.Techniques) == 0 {
		v.Techniques = def.Techniques
	}
	return &v, nil
}

// LoadProfile reads a business profile YAML file.
func LoadProfile(path string) (*BusinessProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business profile: %w", err)
	}
	var p BusinessProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse business profile %s: %w", path, err)
	}
	return &p, nil
}

// TypeBySlug looks up a project type by its normalized slug.
func (v *Vocabulary) TypeBySlug(slug string) (ProjectType, bool) {
	for _, pt := range v.ProjectTypes {
		if pt.Slug == slug {
			return pt, true
		}
	}
	return ProjectType{}, false
}

// CharacterOf returns the character for a project type slug, defaulting to
// new-build for unknown slugs.
func (v *Vocabulary) CharacterOf(slug string) Character {
	if pt, ok := v.TypeBySlug(slug); ok && pt.Character != "" {
		return pt.Character
	}
	return CharacterNewBuild
}

// NormalizeSlug lowercases and hyphenates a free-text type name.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}

// Provider wraps a Vocabulary behind a RWMutex so the watcher can swap it
// while extraction is running.
type Provider struct {
	mu sync.RWMutex
	v  *Vocabulary
}

// NewProvider creates a provider holding the given vocabulary.
func NewProvider(v *Vocabulary) *Provider {
	if v == nil {
		v = Default()
	}
	return &Provider{v: v}
}

// Current returns the active vocabulary.
func (p *Provider) Current() *Vocabulary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}

// Replace swaps in a new vocabulary.
func (p *Provider) Replace(v *Vocabulary) {
	if v == nil {
		return
	}
	p.mu.Lock()
	p.v = v
	p.mu.Unlock()
}
