package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/pkg/adapters/memory"
)

func TestValidate(t *testing.T) {
	parser := compiler.NewParser()
	ctx := context.Background()

	t.Run("Valid repository", func(t *testing.T) {
		// index -> a -> guide/b, plus an external link
		loader := memory.NewLoader(map[string]string{
			"index":   "```nav\nNext -> a.md\nDocs -> https://example.com\n```\n",
			"a":       "```nav\nDeeper -> guide/b\n```\n",
			"guide/b": "```nav\nBack -> ../index#top\n```\n",
		})
		require.NoError(t, Validate(ctx, loader, parser, "index"))
	})

	t.Run("Broken link", func(t *testing.T) {
		loader := memory.NewLoader(map[string]string{
			"index": "```nav\nNowhere -> ghost\n```\n",
		})
		err := Validate(ctx, loader, parser, "index")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Missing document")
		assert.Contains(t, err.Error(), "'ghost'")
	})

	t.Run("Parse error", func(t *testing.T) {
		loader := memory.NewLoader(map[string]string{
			"index": "```state\nnot an assignment\n```\n",
		})
		err := Validate(ctx, loader, parser, "index")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index: parse error")
	})
}

func TestDocumentTarget(t *testing.T) {
	cases := []struct {
		from, target, want string
		ok                 bool
	}{
		{"index", "a.md", "a", true},
		{"guide/b", "c", "guide/c", true},
		{"guide/b", "../index#top", "index", true},
		{"guide/b", "/root", "root", true},
		{"index", "#section", "", false},
		{"index", "https://example.com", "", false},
	}
	for _, tc := range cases {
		got, ok := DocumentTarget(tc.from, tc.target)
		assert.Equal(t, tc.ok, ok, tc.target)
		assert.Equal(t, tc.want, got, tc.target)
	}
}

func TestCrawl(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"index": "```form\nname: text\n```\n\n```nav\nNext -> a\nLost -> ghost\n```\n",
		"a":     "```nav\nHome -> index\n```\n",
	})

	pages, err := Crawl(context.Background(), loader, compiler.NewParser(), "index")
	require.NoError(t, err)
	require.Len(t, pages, 3)

	assert.Equal(t, "index", pages[0].ID)
	assert.True(t, pages[0].HasForm)
	require.Len(t, pages[0].Links, 2)
	assert.Equal(t, "a", pages[0].Links[0].Target)

	assert.Equal(t, "a", pages[1].ID)
	assert.False(t, pages[1].HasForm)

	assert.Equal(t, "ghost", pages[2].ID)
	assert.True(t, pages[2].Missing)
}
