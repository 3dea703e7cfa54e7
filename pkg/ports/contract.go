package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/pkg/domain"
)

// RunVariableStoreContract runs a suite of tests to verify that a VariableStore
// implementation adheres to the defined interface contract.
func RunVariableStoreContract(t *testing.T, store VariableStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Put and Load", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, sessionID, "name", domain.String("Fred")))
		require.NoError(t, store.Put(ctx, sessionID, "coins", domain.Number(42.5)))
		require.NoError(t, store.Put(ctx, sessionID, "vip", domain.Bool(true)))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		// Kinds survive the round trip; 42.5 must not come back as a string.
		assert.True(t, loaded["name"].Equal(domain.String("Fred")))
		assert.True(t, loaded["coins"].Equal(domain.Number(42.5)))
		assert.True(t, loaded["vip"].Equal(domain.Bool(true)))
	})

	t.Run("Put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, sessionID, "coins", domain.Number(7)))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, loaded["coins"].Equal(domain.Number(7)))
	})

	t.Run("Delete variable", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID, "vip"))
		require.NoError(t, store.Delete(ctx, sessionID, "never-written"))
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, loaded, "vip")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Sessions are isolated", func(t *testing.T) {
		other := sessionID + "-other"
		require.NoError(t, store.Put(ctx, other, "coins", domain.Number(1)))
		defer func() { _ = store.Drop(ctx, other) }()

		mine, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, mine["coins"].Equal(domain.Number(7)))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Put(ctx, id1, "a", domain.Number(1)))
		require.NoError(t, store.Put(ctx, id2, "a", domain.Number(2)))
		defer func() {
			_ = store.Drop(ctx, id1)
			_ = store.Drop(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		sort.Strings(sessions)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Drop", func(t *testing.T) {
		require.NoError(t, store.Drop(ctx, sessionID))
		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Drop should return ErrSessionNotFound")
		require.NoError(t, store.Drop(ctx, sessionID), "dropping twice is not an error")
	})
}
