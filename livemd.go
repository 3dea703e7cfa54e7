package livemd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/internal/config"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/internal/runtime"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/persistence"
	"github.com/aretw0/livemd/pkg/ports"
	"github.com/aretw0/livemd/pkg/session"
	"github.com/aretw0/livemd/pkg/state"
)

// Config holds the runtime ceilings (max_state_size_bytes, execution_timeout_ms).
type Config = config.Config

// Summary describes a parsed document without executing it.
type Summary = compiler.Summary

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config { return config.Default() }

// Engine is the high-level entry point of the library. It owns the sessions,
// parses documents and runs execution passes against session stores.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	hooks    []domain.LifecycleHooks
	parser   *compiler.Parser
	sessions *session.Manager
	loader   ports.DocumentLoader
	bridge   ports.VariableStore
	mirror   *persistence.Mirror
	locker   ports.DistributedLocker
	restore  bool
}

var _ ports.Runtime = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithConfig sets the default runtime ceilings.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks. It can be given more than once.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = append(e.hooks, hooks)
	}
}

// WithBridge mirrors every committed variable change to a Persistence Bridge.
// Bridge failures are logged and never affect execution.
func WithBridge(bridge ports.VariableStore) Option {
	return func(e *Engine) {
		e.bridge = bridge
	}
}

// WithRestore rehydrates sessions from the bridge when they are opened.
func WithRestore(enabled bool) Option {
	return func(e *Engine) {
		e.restore = enabled
	}
}

// WithLocker serializes passes of a session across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLoader sets the document loader used by ExecuteDocument.
func WithLoader(loader ports.DocumentLoader) Option {
	return func(e *Engine) {
		e.loader = loader
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    config.Default(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if e.restore && e.bridge == nil {
		return nil, errors.New("restore requires a bridge")
	}

	e.parser = compiler.NewParser(compiler.WithLogger(e.logger))

	mgrOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithLimit(e.cfg.MaxStateSizeBytes),
	}
	if e.locker != nil {
		mgrOpts = append(mgrOpts, session.WithLocker(e.locker))
	}
	if e.bridge != nil {
		e.mirror = persistence.NewMirror(e.bridge, persistence.WithLogger(e.logger))
		mgrOpts = append(mgrOpts, session.WithOnOpen(func(s *session.Session) {
			e.mirror.Attach(s.ID, s.Store)
		}))
		if e.restore {
			mgrOpts = append(mgrOpts, session.WithRestore(e.bridge))
		}
	}
	e.sessions = session.NewManager(mgrOpts...)
	return e, nil
}

// Config returns the engine defaults.
func (e *Engine) Config() Config { return e.cfg }

// Shutdown flushes pending bridge writes.
func (e *Engine) Shutdown() error {
	if e.mirror == nil {
		return nil
	}
	return e.mirror.Close()
}

// Parse extracts and parses a document without executing it.
func (e *Engine) Parse(document string) []domain.Segment {
	return e.parser.Parse(document)
}

// Summarize parses a document and reports its blocks, variables and problems.
func (e *Engine) Summarize(document string) Summary {
	return compiler.Summarize(e.Parse(document))
}

// Open creates a session. An empty ID is replaced by a generated UUID.
func (e *Engine) Open(ctx context.Context, sessionID string) (string, error) {
	s, err := e.sessions.Open(ctx, sessionID)
	if err != nil {
		return "", err
	}
	e.logger.Debug("session opened", "session_id", s.ID)
	return s.ID, nil
}

// Close destroys a session. Its bridge rows are dropped too.
func (e *Engine) Close(ctx context.Context, sessionID string) error {
	if err := e.sessions.Close(ctx, sessionID); err != nil {
		return err
	}
	if e.mirror != nil {
		e.mirror.Forget(sessionID)
	}
	e.logger.Debug("session closed", "session_id", sessionID)
	return nil
}

// Reset clears a session's variables, remembered answers and paused pass.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	return e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		s.Reset()
		return nil
	})
}

// Sessions lists open sessions.
func (e *Engine) Sessions() []string {
	return e.sessions.List()
}

// Execute runs a full pass over document. A pass cut short by the deadline
// returns its partial result together with a *domain.TimeoutError.
func (e *Engine) Execute(ctx context.Context, sessionID, document string, opts domain.ExecuteOptions) (*domain.RenderResult, error) {
	segs := e.parser.Parse(document)

	var res *domain.RenderResult
	err := e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		cfg, err := e.passConfig(segs, opts.Settings)
		if err != nil {
			return err
		}
		s.Store.SetLimit(cfg.MaxStateSizeBytes)
		if err := seed(s.Store, opts); err != nil {
			return err
		}
		res = e.run(ctx, s, segs, cfg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, passErr(ctx, res)
}

// ExecuteDocument loads a document through the configured loader and executes it.
// Document metadata overrides the runtime ceilings, then opts.Settings does.
func (e *Engine) ExecuteDocument(ctx context.Context, sessionID, documentID string, opts domain.ExecuteOptions) (*domain.RenderResult, error) {
	if e.loader == nil {
		return nil, domain.ErrNoLoader
	}
	doc, err := e.loader.Load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(doc.Meta) > 0 {
		settings := make(map[string]any, len(doc.Meta)+len(opts.Settings))
		for k, v := range doc.Meta {
			settings[k] = v
		}
		for k, v := range opts.Settings {
			settings[k] = v
		}
		opts.Settings = settings
	}
	return e.Execute(ctx, sessionID, doc.Content, opts)
}

// ExecuteBlock runs a single block body against the session's current store.
// While a pass is paused at a form, the block runs beside it and the paused
// pass stays resumable.
func (e *Engine) ExecuteBlock(ctx context.Context, sessionID string, kind domain.BlockKind, body string) (*domain.RenderResult, error) {
	b, err := e.parser.ParseBlock(kind, "", body)
	if err != nil {
		return nil, err
	}

	var res *domain.RenderResult
	err = e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		segs := []domain.Segment{b}
		if !s.Paused() {
			res = e.run(ctx, s, segs, e.cfg)
			return nil
		}
		res = e.executor(e.cfg.Timeout()).Execute(ctx, runtime.Input{
			SessionID: s.ID,
			Segments:  segs,
			Store:     s.Store,
			Answers:   s.Answers,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, passErr(ctx, res)
}

// GetState returns a snapshot of the session's variables.
func (e *Engine) GetState(ctx context.Context, sessionID string) (map[string]domain.Value, error) {
	var snap map[string]domain.Value
	err := e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		snap = s.Store.Snapshot()
		return nil
	})
	return snap, err
}

// SetState writes partial as one atomic batch. Names may carry a leading "$".
func (e *Engine) SetState(ctx context.Context, sessionID string, partial map[string]domain.Value) error {
	batch := make(map[string]domain.Value, len(partial))
	for k, v := range partial {
		name, err := state.NormalizeName(k)
		if err != nil {
			return err
		}
		batch[name] = v
	}
	return e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		return s.Store.Apply(batch)
	})
}

// SubmitForm applies answers to the pending form and resumes the paused pass.
// The answers are remembered, so re-executing the document replays them.
func (e *Engine) SubmitForm(ctx context.Context, sessionID, blockID string, answers map[string]any) (*domain.RenderResult, error) {
	values := make(map[string]domain.Value, len(answers))
	for k, raw := range answers {
		name, err := state.NormalizeName(k)
		if err != nil {
			return nil, err
		}
		v, err := domain.ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("answer %q: %w", k, err)
		}
		values[name] = v
	}

	var res *domain.RenderResult
	err := e.sessions.Do(ctx, sessionID, func(ctx context.Context, s *session.Session) error {
		if !s.Paused() {
			return domain.ErrNoPendingForm
		}
		cp := *s.Checkpoint
		if pending := cp.Result.PendingForm; pending.BlockID != blockID {
			return fmt.Errorf("%w: pending form is %s, got %s", domain.ErrFormMismatch, pending.BlockID, blockID)
		}

		s.Remember(blockID, values)
		exec := e.executor(s.Timeout)
		var err error
		res, err = exec.Resume(ctx, runtime.Input{
			SessionID: s.ID,
			Segments:  s.Segments,
			Store:     s.Store,
			Answers:   s.Answers,
		}, cp)
		if err != nil {
			return err
		}
		s.Checkpoint = nil
		if res.PendingForm != nil {
			s.Checkpoint = &runtime.Checkpoint{Result: res, Before: cp.Before}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, passErr(ctx, res)
}

// run executes segs and records the checkpoint of a paused pass.
// The caller holds the session lock.
func (e *Engine) run(ctx context.Context, s *session.Session, segs []domain.Segment, cfg Config) *domain.RenderResult {
	s.Store.SetLimit(cfg.MaxStateSizeBytes)
	before := s.Store.Snapshot()

	res := e.executor(cfg.Timeout()).Execute(ctx, runtime.Input{
		SessionID: s.ID,
		Segments:  segs,
		Store:     s.Store,
		Answers:   s.Answers,
	})

	s.Segments = segs
	s.Timeout = cfg.Timeout()
	s.Checkpoint = nil
	if res.PendingForm != nil {
		s.Checkpoint = &runtime.Checkpoint{Result: res, Before: before}
	}
	return res
}

// passErr is the pass-level error of res. A pass abandoned by the caller
// reports the caller's context error.
func passErr(ctx context.Context, res *domain.RenderResult) error {
	if res.Status == domain.PassCancelled {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	return res.Err()
}

func (e *Engine) executor(timeout time.Duration) *runtime.Executor {
	return runtime.NewExecutor(
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(domain.Combine(e.hooks...)),
		runtime.WithTimeout(timeout),
	)
}

// passConfig layers document frontmatter and per-call settings over the
// engine defaults. Bad frontmatter is logged and ignored; bad settings fail.
func (e *Engine) passConfig(segs []domain.Segment, settings map[string]any) (Config, error) {
	cfg := e.cfg
	fm, err := compiler.Frontmatter(segs)
	if err != nil {
		e.logger.Warn("ignoring unreadable frontmatter", "err", err)
	} else if fm != nil {
		if over, err := config.FromMap(fm, cfg); err != nil {
			e.logger.Warn("ignoring frontmatter settings", "err", err)
		} else {
			cfg = over
		}
	}
	return config.FromMap(settings, cfg)
}

// seed prepares the store for a new pass: a prior snapshot replaces it,
// Carry keeps it, and otherwise the pass starts fresh.
func seed(store *state.Store, opts domain.ExecuteOptions) error {
	switch {
	case opts.Prior != nil:
		return store.Replace(opts.Prior)
	case opts.Carry:
		return nil
	default:
		store.Reset()
		return nil
	}
}
