package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/pkg/adapters/memory"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/persistence"
	"github.com/aretw0/livemd/pkg/state"
)

func TestMirror_WritesThrough(t *testing.T) {
	bridge := memory.NewStore()
	mirror := persistence.NewMirror(bridge)

	store := state.New(0)
	mirror.Attach("s1", store)

	require.NoError(t, store.Set("coins", domain.Number(10)))
	require.NoError(t, store.Apply(map[string]domain.Value{
		"name": domain.String("Fred"),
		"vip":  domain.Bool(true),
	}))
	store.Delete("vip")

	require.NoError(t, mirror.Close())

	rows, err := bridge.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.True(t, rows["coins"].Equal(domain.Number(10)))
	assert.True(t, rows["name"].Equal(domain.String("Fred")))
}

func TestMirror_ForgetDropsSession(t *testing.T) {
	bridge := memory.NewStore()
	mirror := persistence.NewMirror(bridge)

	mirror.Seed("s1", map[string]domain.Value{"coins": domain.Number(1)})
	mirror.Forget("s1")
	require.NoError(t, mirror.Close())

	_, err := bridge.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

type failingBridge struct{ *memory.Store }

func (failingBridge) Put(context.Context, string, string, domain.Value) error {
	return errors.New("bridge down")
}

func TestMirror_BridgeFailuresDoNotReachTheStore(t *testing.T) {
	mirror := persistence.NewMirror(failingBridge{memory.NewStore()})

	store := state.New(0)
	mirror.Attach("s1", store)

	require.NoError(t, store.Set("coins", domain.Number(10)))
	require.NoError(t, mirror.Close())

	v, ok := store.Get("coins")
	assert.True(t, ok)
	assert.True(t, v.Equal(domain.Number(10)))
}

func TestMirror_WritesAfterCloseAreIgnored(t *testing.T) {
	bridge := memory.NewStore()
	mirror := persistence.NewMirror(bridge)
	require.NoError(t, mirror.Close())
	require.NoError(t, mirror.Close())

	mirror.Seed("s1", map[string]domain.Value{"coins": domain.Number(1)})

	ids, err := bridge.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
