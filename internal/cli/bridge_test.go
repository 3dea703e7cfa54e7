package cli

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/persistence/middleware"
)

func roundTrip(t *testing.T, b *Bridge) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.Store.Put(ctx, "s1", "coins", domain.Number(3)))
	rows, err := b.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, rows["coins"].Equal(domain.Number(3)))
}

func TestOpenBridge_Kinds(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	dir := t.TempDir()
	cases := map[string]BridgeOptions{
		"memory": {Kind: BridgeMemory},
		"file":   {Kind: BridgeFile, Dir: filepath.Join(dir, "sessions")},
		"sqlite": {Kind: BridgeSQLite, SQLitePath: filepath.Join(dir, "livemd.db")},
		"redis":  {Kind: BridgeRedis, RedisURL: "redis://" + mr.Addr() + "/0", TTL: time.Hour},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			b, err := OpenBridge(opts)
			require.NoError(t, err)
			defer b.Close()
			require.True(t, b.Enabled())
			roundTrip(t, b)
			if name == "redis" {
				assert.NotNil(t, b.Locker)
			}
		})
	}
}

func TestOpenBridge_None(t *testing.T) {
	b, err := OpenBridge(BridgeOptions{})
	require.NoError(t, err)
	assert.False(t, b.Enabled())
	assert.NoError(t, b.Close())
}

func TestOpenBridge_Encryption(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	b, err := OpenBridge(BridgeOptions{Kind: BridgeMemory, EncryptionKey: key})
	require.NoError(t, err)
	roundTrip(t, b)

	_, err = OpenBridge(BridgeOptions{Kind: BridgeMemory, EncryptionKey: "c2hvcnQ="})
	assert.Error(t, err)
}

func TestOpenBridge_PII(t *testing.T) {
	b, err := OpenBridge(BridgeOptions{Kind: BridgeMemory, PII: []string{"^email$"}})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Store.Put(ctx, "s1", "email", domain.String("a@b.c")))
	rows, err := b.Store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, rows["email"].Equal(domain.String(middleware.Mask)))

	_, err = OpenBridge(BridgeOptions{Kind: BridgeMemory, PII: []string{"("}})
	assert.Error(t, err)
}

func TestOpenBridge_Invalid(t *testing.T) {
	_, err := OpenBridge(BridgeOptions{Kind: "etcd"})
	assert.Error(t, err)

	_, err = OpenBridge(BridgeOptions{Kind: BridgeRedis})
	assert.Error(t, err)
}
