package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/pkg/adapters/file"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

// Ensure Store implements VariableStore
var _ ports.VariableStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunVariableStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "s1", "coins", domain.Number(15)))
	require.NoError(t, store.Put(ctx, "s1", "name", domain.String("Fred")))

	data, err := os.ReadFile(filepath.Join(dir, "s1.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"coins": 15, "name": "Fred"}`, string(data))

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_RejectsPathLikeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, "../escape", "x", domain.Number(1)))
	assert.Error(t, store.Put(ctx, "", "x", domain.Number(1)))
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
