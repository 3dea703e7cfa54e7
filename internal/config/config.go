// Package config holds the runtime ceilings of an execution pass and the
// loaders that read them from files, frontmatter and request bodies.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/livemd/pkg/domain"
)

const (
	DefaultMaxStateSizeBytes  = 1 << 20
	DefaultExecutionTimeoutMS = 5000
)

// Config holds the recognized runtime options.
type Config struct {
	MaxStateSizeBytes  int `yaml:"max_state_size_bytes" json:"max_state_size_bytes" mapstructure:"max_state_size_bytes"`
	ExecutionTimeoutMS int `yaml:"execution_timeout_ms" json:"execution_timeout_ms" mapstructure:"execution_timeout_ms"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		MaxStateSizeBytes:  DefaultMaxStateSizeBytes,
		ExecutionTimeoutMS: DefaultExecutionTimeoutMS,
	}
}

// Validate rejects non-positive ceilings.
func (c Config) Validate() error {
	if c.MaxStateSizeBytes <= 0 {
		return fmt.Errorf("%w: max_state_size_bytes must be positive, got %d", domain.ErrInvalidSettings, c.MaxStateSizeBytes)
	}
	if c.ExecutionTimeoutMS <= 0 {
		return fmt.Errorf("%w: execution_timeout_ms must be positive, got %d", domain.ErrInvalidSettings, c.ExecutionTimeoutMS)
	}
	return nil
}

// Timeout returns the pass budget as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.ExecutionTimeoutMS) * time.Millisecond
}

// LoadFile reads a configuration file (YAML or JSON) on top of the defaults.
// A missing file yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// FromMap overlays loosely typed settings (document frontmatter, request
// bodies) on base. Unrecognized keys are ignored; "5000" is accepted for 5000.
func FromMap(m map[string]any, base Config) (Config, error) {
	if len(m) == 0 {
		return base, nil
	}
	if nested, ok := m["livemd"].(map[string]any); ok {
		m = nested
	}

	cfg := base
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(m); err != nil {
		return base, fmt.Errorf("%w: %v", domain.ErrInvalidSettings, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
