package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/livemd/internal/presentation/graph"
	"github.com/aretw0/livemd/internal/validator"
	"github.com/aretw0/livemd/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		pages    []validator.Page
		contains []string
	}{
		{
			name:     "Entry Shape",
			pages:    []validator.Page{{ID: "index"}},
			contains: []string{"index((\"index\"))"},
		},
		{
			name:     "Form Shape",
			pages:    []validator.Page{{ID: "signup", HasForm: true}},
			contains: []string{"signup[/\"signup\"/]"},
		},
		{
			name: "ID Sanitization",
			pages: []validator.Page{
				{ID: "path/to/file.md"},
				{ID: "hyphen-ated"},
			},
			contains: []string{
				"path_to_file_md[\"path/to/file.md\"]",
				"hyphen_ated[\"hyphen-ated\"]",
			},
		},
		{
			name: "Label Escaping",
			pages: []validator.Page{{
				ID: "a",
				Links: []validator.Link{{
					Target: "b",
					Label:  domain.Template{{Text: `Say "hi" to `}, {Ref: "name", Token: "$name"}},
				}},
			}},
			contains: []string{`a -- "Say 'hi' to $name" --> b`},
		},
		{
			name: "Cross Directory Link",
			pages: []validator.Page{{
				ID:    "guide/intro",
				Links: []validator.Link{{Target: "index"}},
			}},
			contains: []string{"guide_intro -.-> index"},
		},
		{
			name: "Problems",
			pages: []validator.Page{
				{ID: "ghost", Missing: true},
				{ID: "bad", Errors: []*domain.ParseError{{Msg: "oops"}}},
			},
			contains: []string{"class ghost missing;", "class bad broken;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.pages, "index")
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}
