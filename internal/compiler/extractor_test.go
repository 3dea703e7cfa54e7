package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/pkg/domain"
)

func TestExtract_InterleavesProseAndBlocks(t *testing.T) {
	doc := "# Title\n" +
		"```state\n" +
		"$coins = 10\n" +
		"```\n" +
		"Between.\n" +
		"```go\n" +
		"fmt.Println(\"$coins\")\n" +
		"```\n"

	chunks := NewExtractor(nil).Extract(doc)
	require.Len(t, chunks, 4)

	lit, ok := chunks[0].Segment.(*domain.Literal)
	require.True(t, ok)
	assert.Equal(t, "# Title\n", lit.Text)

	f := chunks[1].Fence
	require.NotNil(t, f)
	assert.Equal(t, domain.BlockState, f.Kind)
	assert.Equal(t, domain.SourceRange{StartLine: 2, EndLine: 4, StartOffset: 8, EndOffset: 33}, f.Range)
	require.Len(t, f.Body, 1)
	assert.Equal(t, "$coins = 10", f.Body[0].Text)
	assert.Equal(t, 3, f.Body[0].Number)
	assert.Equal(t, doc[f.Range.StartOffset:f.Range.EndOffset], f.Raw)

	unk, ok := chunks[3].Segment.(*domain.Unknown)
	require.True(t, ok)
	assert.Equal(t, "go", unk.Tag)
	assert.Equal(t, "```go\nfmt.Println(\"$coins\")\n```\n", unk.Text)
}

func TestExtract_FenceRules(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantFence bool
	}{
		{"backticks", "```set\ninc $x\n```\n", true},
		{"tildes", "~~~set\ninc $x\n~~~\n", true},
		{"indented three", "   ```set\ninc $x\n```\n", true},
		{"indented four is code", "    ```set\ninc $x\n```\n", false},
		{"two backticks", "``set\ninc $x\n``\n", false},
		{"uppercase tag", "```SET\ninc $x\n```\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := NewExtractor(nil).Extract(tt.doc)
			found := false
			for _, c := range chunks {
				if c.Fence != nil {
					found = true
				}
			}
			assert.Equal(t, tt.wantFence, found)
		})
	}
}

func TestExtract_ClosingFenceMustBeLongEnough(t *testing.T) {
	doc := "````if $ok\n```panel\nhi\n```\n````\nafter\n"
	chunks := NewExtractor(nil).Extract(doc)
	require.Len(t, chunks, 2)
	require.NotNil(t, chunks[0].Fence)
	assert.Len(t, chunks[0].Fence.Body, 3)
	assert.Equal(t, 5, chunks[0].Fence.Range.EndLine)
}

func TestExtract_Unterminated(t *testing.T) {
	chunks := NewExtractor(nil).Extract("intro\n```state\n$a = 1\n")
	require.Len(t, chunks, 2)
	require.NotNil(t, chunks[1].Fence)
	assert.True(t, chunks[1].Fence.Unterminated)
	assert.Equal(t, 3, chunks[1].Fence.Range.EndLine)
}

func TestExtract_CRLF(t *testing.T) {
	chunks := NewExtractor(nil).Extract("```set\r\ninc $x\r\n```\r\n")
	require.Len(t, chunks, 1)
	require.NotNil(t, chunks[0].Fence)
	assert.Equal(t, "inc $x", chunks[0].Fence.Body[0].Text)
}
