package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/livemd/pkg/adapters/file"
	"github.com/aretw0/livemd/pkg/adapters/memory"
	"github.com/aretw0/livemd/pkg/adapters/redis"
	"github.com/aretw0/livemd/pkg/adapters/sqlite"
	"github.com/aretw0/livemd/pkg/persistence/middleware"
	"github.com/aretw0/livemd/pkg/ports"
)

// Bridge kinds accepted by --bridge.
const (
	BridgeNone   = "none"
	BridgeMemory = "memory"
	BridgeFile   = "file"
	BridgeRedis  = "redis"
	BridgeSQLite = "sqlite"
)

// BridgeOptions selects and configures the Persistence Bridge.
type BridgeOptions struct {
	Kind       string        `mapstructure:"bridge"`
	Dir        string        `mapstructure:"bridge_dir"`
	RedisURL   string        `mapstructure:"redis_url"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	TTL        time.Duration `mapstructure:"session_ttl"`
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey string   `mapstructure:"encryption_key"`
	PII           []string `mapstructure:"pii"`
}

// Bridge is an opened Persistence Bridge and the resources it holds.
type Bridge struct {
	Store  ports.VariableStore
	Locker ports.DistributedLocker
	close  []func() error
}

// Enabled reports whether a store is configured.
func (b *Bridge) Enabled() bool {
	return b != nil && b.Store != nil
}

// Close releases the bridge connections.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for _, c := range b.close {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenBridge builds the store named by opts.Kind, wrapped in the configured
// middlewares. Redis also provides a distributed session locker.
func OpenBridge(opts BridgeOptions) (*Bridge, error) {
	b := &Bridge{}
	switch opts.Kind {
	case "", BridgeNone:
		return b, nil
	case BridgeMemory:
		b.Store = memory.NewStore()
	case BridgeFile:
		b.Store = file.New(opts.Dir)
	case BridgeRedis:
		if opts.RedisURL == "" {
			return nil, errors.New("redis bridge requires --redis-url")
		}
		ropts, err := backend.ParseURL(opts.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := backend.NewClient(ropts)
		var storeOpts []redis.Option
		if opts.TTL > 0 {
			storeOpts = append(storeOpts, redis.WithTTL(opts.TTL))
		}
		store := redis.NewFromClient(client, storeOpts...)
		b.Store = store
		b.Locker = redis.NewLocker(client, redis.DefaultPrefix)
		b.close = append(b.close, store.Close)
	case BridgeSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = "livemd.db"
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, err
		}
		b.Store = store
		b.close = append(b.close, store.Close)
	default:
		return nil, fmt.Errorf("unknown bridge %q (want none, memory, file, redis or sqlite)", opts.Kind)
	}

	var mws []middleware.Middleware
	for _, p := range opts.PII {
		if _, err := regexp.Compile(p); err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
	}
	if len(opts.PII) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(opts.PII))
	}
	if opts.EncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.EncryptionKey)
		if err != nil || len(key) != 32 {
			_ = b.Close()
			return nil, errors.New("encryption key must be 32 bytes, base64 encoded")
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}
