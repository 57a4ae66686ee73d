package tools

import "testing"

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    Intent
	}{
		{
			name:    "plain narrative takes the default path",
			message: "We tore out the old chimney and rebuilt it over three days",
			want:    Intent{},
		},
		{
			name:    "layout request",
			message: "Can you make the layout more dramatic?",
			want:    Intent{Layout: true},
		},
		{
			name:    "block rearrangement is layout",
			message: "Move the before photos above the blocks of text",
			want:    Intent{Layout: true},
		},
		{
			name:    "readiness question",
			message: "Is this ready to publish?",
			want:    Intent{Readiness: true},
		},
		{
			name:    "casual readiness phrasing",
			message: "do you think it's good to go",
			want:    Intent{Readiness: true},
		},
		{
			name:    "content generation",
			message: "Write a description for this project",
			want:    Intent{Generate: true},
		},
		{
			name:    "draft the title",
			message: "draft a punchy title",
			want:    Intent{Generate: true},
		},
		{
			name:    "generation verb without a content target is narrative",
			message: "We created a flagstone patio for the backyard",
			want:    Intent{},
		},
		{
			name:    "layout and readiness in one message",
			message: "Rearrange the page and tell me if it's ready to publish",
			want:    Intent{Layout: true, Readiness: true},
		},
		{
			name:    "compose reads as layout, not generation",
			message: "compose the page again with a calmer structure",
			want:    Intent{Layout: true},
		},
		{
			name:    "layout plus explicit content request keeps both",
			message: "redesign the page and write a new description",
			want:    Intent{Layout: true, Generate: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyIntent(tc.message)
			if got != tc.want {
				t.Errorf("ClassifyIntent(%q) = %+v, want %+v", tc.message, got, tc.want)
			}
		})
	}
}

func TestIntent_Default(t *testing.T) {
	if !(Intent{}).Default() {
		t.Error("zero intent not default")
	}
	if (Intent{Layout: true}).Default() {
		t.Error("layout intent reported default")
	}
}
