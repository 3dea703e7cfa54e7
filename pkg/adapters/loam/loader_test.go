package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/internal/testutils"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports/tests"
)

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, files)
	return New(loam.NewTypedRepository[DocumentMetadata](repo))
}

func TestLoader_Contract(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"intro.md": "---\ntitle: Intro\n---\nHello $name",
		"shop.md":  "---\ntitle: Shop\n---\nYou have $coins coins.",
	})

	tests.DocumentLoaderContractTest(t, loader, map[string]string{
		"intro": "Hello $name",
		"shop":  "You have $coins coins.",
	})
}

func TestLoader_LoadFrontmatter(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"quest.md": "---\ntitle: Quest\nexecution_timeout_ms: 250\n---\nbody",
	})

	doc, err := loader.Load(context.Background(), "quest")
	require.NoError(t, err)
	assert.Equal(t, "quest", doc.ID)
	assert.Equal(t, "Quest", doc.Meta["title"])
	assert.EqualValues(t, 250, doc.Meta["execution_timeout_ms"])
	assert.NotContains(t, doc.Meta, "max_state_size_bytes", "zero settings are omitted")
}

func TestLoader_LoadMissing(t *testing.T) {
	loader := newLoader(t, map[string]string{"a.md": "---\ntitle: A\n---\nA"})

	_, err := loader.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestLoader_List_NormalizesIDs(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"start.md":        "---\nid: start.md\n---\nHello",
		"guides/setup.md": "---\ntitle: Setup\n---\nSteps",
		"data.json":       `{"id": "data"}`,
	})

	ids, err := loader.List(context.Background())
	require.NoError(t, err)

	assert.Contains(t, ids, "start", "start.md should become start")
	assert.Contains(t, ids, "guides/setup")
	assert.NotContains(t, ids, "data", "only markdown documents are listed")
}

func TestLoader_List_DetectsCollisions(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"foo.md":      "---\nid: foo\n---\nExplicit ID",
		"nested/x.md": "---\nid: foo\n---\nSame ID",
	})

	_, err := loader.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestMetaMap_EmptyFrontmatter(t *testing.T) {
	meta, err := metaMap(DocumentMetadata{})
	require.NoError(t, err)
	assert.Nil(t, meta)
}
