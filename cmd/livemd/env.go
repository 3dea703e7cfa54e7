package main

import (
	"errors"
	"log/slog"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/internal/cli"
	"github.com/aretw0/livemd/pkg/adapters/loam"
	"github.com/aretw0/livemd/pkg/observability"
	"github.com/aretw0/livemd/pkg/ports"
)

// serverEnv is the engine and its collaborators shared by the long-running
// transports.
type serverEnv struct {
	engine  *livemd.Engine
	logger  *slog.Logger
	metrics *observability.Metrics
	loader  ports.DocumentLoader
	bridge  *cli.Bridge
}

func openServerEnv(dir string, withMetrics bool) (*serverEnv, error) {
	cfg, err := runtimeConfig()
	if err != nil {
		return nil, err
	}
	bopts, err := bridgeOptions()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	env := &serverEnv{logger: logger}
	if withMetrics {
		env.metrics = observability.NewMetrics()
	}
	if dir != "" {
		l, err := loam.Open(dir)
		if err != nil {
			return nil, err
		}
		env.loader = l
	}

	env.bridge, err = cli.OpenBridge(bopts)
	if err != nil {
		return nil, err
	}
	env.engine, err = cli.CreateEngine(cli.EngineOptions{
		Config:  cfg,
		Bridge:  env.bridge,
		Loader:  env.loader,
		Logger:  logger,
		Metrics: env.metrics,
		Restore: env.bridge.Enabled(),
	})
	if err != nil {
		_ = env.bridge.Close()
		return nil, err
	}
	return env, nil
}

func (e *serverEnv) Close() error {
	return errors.Join(e.engine.Shutdown(), e.bridge.Close())
}
