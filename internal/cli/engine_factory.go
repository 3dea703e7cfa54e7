package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/internal/config"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/observability"
	"github.com/aretw0/livemd/pkg/ports"
)

// EngineOptions gathers what the commands share to build an engine.
type EngineOptions struct {
	Config  config.Config
	Bridge  *Bridge
	Loader  ports.DocumentLoader
	Logger  *slog.Logger
	Metrics *observability.Metrics
	// Restore rehydrates sessions from the bridge on open.
	Restore bool
}

// CreateEngine initializes a livemd engine with standard CLI conventions.
func CreateEngine(o EngineOptions) (*livemd.Engine, error) {
	opts := []livemd.Option{
		livemd.WithConfig(o.Config),
	}

	// 1. Logger & Hooks
	if o.Logger != nil {
		opts = append(opts,
			livemd.WithLogger(o.Logger),
			livemd.WithHooks(observability.LogHooks(o.Logger)),
		)
	}
	if o.Metrics != nil {
		opts = append(opts, livemd.WithHooks(o.Metrics.Hooks()))
	}

	// 2. Persistence
	if o.Bridge.Enabled() {
		opts = append(opts, livemd.WithBridge(o.Bridge.Store), livemd.WithRestore(o.Restore))
		if o.Bridge.Locker != nil {
			opts = append(opts, livemd.WithLocker(o.Bridge.Locker))
		}
	}

	// 3. Documents
	if o.Loader != nil {
		opts = append(opts, livemd.WithLoader(o.Loader))
	}

	engine, err := livemd.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// ResolveTarget splits a run target into the repository directory and the
// document ID inside it. A directory resolves to its entry point.
func ResolveTarget(path string) (dir, docID string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
	}
	if info.IsDir() {
		return path, determineEntryPoint(path), nil
	}
	base := filepath.Base(path)
	return filepath.Dir(path), strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// determineEntryPoint picks the document a directory run starts from:
// index, main, start, README, then a file named after the directory.
func determineEntryPoint(dir string) string {
	candidates := []string{"index", "main", "start", "README"}
	if abs, err := filepath.Abs(dir); err == nil {
		candidates = append(candidates, filepath.Base(abs))
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c+".md")); err == nil {
			return c
		}
	}
	return "index"
}
