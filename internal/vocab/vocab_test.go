package vocab

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Wellformed(t *testing.T) {
	v := Default()
	if len(v.ProjectTypes) == 0 || len(v.Materials) == 0 || len(v.Techniques) == 0 {
		t.Fatal("default vocabulary has empty sections")
	}
	seen := make(map[string]bool)
	for _, pt := range v.ProjectTypes {
		if pt.Slug == "" || pt.Display == "" || pt.Character == "" {
			t.Errorf("incomplete project type: %+v", pt)
		}
		if seen[pt.Slug] {
			t.Errorf("duplicate slug %s", pt.Slug)
		}
		seen[pt.Slug] = true
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `project_types:
  - slug: pond-installation
    display: Pond Installation
    character: outdoor
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(v.ProjectTypes) != 1 || v.ProjectTypes[0].Slug != "pond-installation" {
		t.Errorf("project types not overridden: %+v", v.ProjectTypes)
	}
	// Sections absent from the file fall back to the defaults.
	if len(v.Materials) == 0 || len(v.Techniques) == 0 {
		t.Error("missing sections did not fall back to defaults")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestTypeBySlugAndCharacter(t *testing.T) {
	v := Default()
	pt, ok := v.TypeBySlug("chimney-rebuild")
	if !ok || pt.Character != CharacterRestoration {
		t.Errorf("chimney-rebuild lookup: %+v ok=%t", pt, ok)
	}
	if v.CharacterOf("deck-construction") != CharacterOutdoor {
		t.Error("deck-construction character wrong")
	}
	if v.CharacterOf("unknown-slug") != CharacterNewBuild {
		t.Error("unknown slug should default to new-build")
	}
}

func TestNormalizeSlug(t *testing.T) {
	if got := NormalizeSlug("  Chimney Rebuild "); got != "chimney-rebuild" {
		t.Errorf("NormalizeSlug = %q", got)
	}
}

func TestProvider_Replace(t *testing.T) {
	p := NewProvider(nil)
	if p.Current() == nil {
		t.Fatal("nil vocabulary not defaulted")
	}

	custom := &Vocabulary{ProjectTypes: []ProjectType{{Slug: "x", Display: "X", Character: CharacterTechnical}}}
	p.Replace(custom)
	if len(p.Current().ProjectTypes) != 1 {
		t.Error("replace did not take effect")
	}

	p.Replace(nil)
	if p.Current() != custom {
		t.Error("nil replace clobbered the vocabulary")
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := "name: Mile High Masonry\ncategory: masonry\nvoice: plainspoken and proud\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Name != "Mile High Masonry" || p.Voice == "" {
		t.Errorf("profile = %+v", p)
	}
}
