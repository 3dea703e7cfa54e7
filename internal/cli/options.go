package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/livemd/internal/config"
	"github.com/aretw0/livemd/pkg/domain"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Path       string
	DocumentID string // Overrides the entry point of a directory
	SessionID  string
	Watch      bool
	JSON       bool // NDJSON results on Out, no banner, no styling
	Plain      bool // Raw Markdown even on a terminal
	Fresh      bool
	Prior      string // Raw JSON object
	Config     config.Config
	Bridge     BridgeOptions
	Logger     *slog.Logger
	In         io.Reader
	Out        io.Writer
}

// Execute handles the 'run' command logic, dispatching to Session or Watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch && opts.JSON {
		return fmt.Errorf("--watch and --json cannot be used together")
	}
	if opts.Watch {
		return RunWatch(opts)
	}
	return RunSession(opts)
}

// executeOptions parses --prior into the seed of the first pass.
func (o RunOptions) executeOptions() (domain.ExecuteOptions, error) {
	var opts domain.ExecuteOptions
	if o.Prior == "" {
		return opts, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(o.Prior), &raw); err != nil {
		return opts, fmt.Errorf("error parsing --prior JSON: %w", err)
	}
	prior, err := domain.Values(raw)
	if err != nil {
		return opts, fmt.Errorf("error parsing --prior JSON: %w", err)
	}
	opts.Prior = prior
	return opts, nil
}
