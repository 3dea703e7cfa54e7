package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/internal/presentation/tui"
)

// settleDelay lets editors finish writing before a reload.
const settleDelay = 100 * time.Millisecond

// RunWatch executes a document in development mode, re-running it in the
// same session whenever the repository changes. Remembered form answers are
// replayed, so a reload renders without asking again.
func RunWatch(opts RunOptions) error {
	in, out := opts.streams()
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	env, err := prepare(sigCtx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	events, err := env.loader.Watch(sigCtx)
	if err != nil {
		return err
	}

	if !opts.Plain {
		tui.PrintBanner(out, livemd.Version)
	}
	logger.Info("Starting Watcher", "path", opts.Path, "document", env.docID, "session_id", env.id)
	printSystemMessage(out, "Watching '%s' in session '%s'.", env.docID, env.id)

	// Reuse the same pump to avoid multiple Stdin readers across reloads.
	pump := NewLinePump(in)
	w := &watcher{env: env, pump: pump, events: events, opts: opts, logger: logger}
	for w.iterate(sigCtx) {
		logger.Info("Watcher restarting")
	}
	return nil
}

type watcher struct {
	env    *runEnv
	pump   *LinePump
	events <-chan string
	opts   RunOptions
	logger *slog.Logger
}

// iterate runs one pass and reports whether the watcher should run again.
func (w *watcher) iterate(parent *SignalContext) bool {
	// Child context cancelled by reloads without cancelling the signal context.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	_, out := w.opts.streams()
	r := &Runner{
		Engine:  w.env.engine,
		Answers: tui.NewPrompter(w.pump.Reader(ctx.Done()), out),
		Out:     out,
		Render:  w.opts.renderer(out),
		Logger:  w.opts.Logger,
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(ctx, w.env.id, w.env.docID, w.env.exec)
		done <- err
	}()

	running := done
	for {
		select {
		case <-parent.Done():
			cancel()
			if running != nil {
				<-running
			}
			w.logger.Info("Stopping watcher (signal received)", "signal", parent.Signal())
			return false
		case err := <-running:
			running = nil
			if err != nil && !isInterrupted(err) {
				w.logger.Error("Runtime error", "err", err)
			}
			printSystemMessage(out, "Waiting for changes...")
		case event, ok := <-w.events:
			if !ok {
				return false
			}
			w.logger.Info("Change detected, triggering reload", "event", event)
			printSystemMessage(out, "Change detected in '%s'.", event)
			cancel()
			if running != nil {
				<-running
			}
			time.Sleep(settleDelay)
			return true
		}
	}
}
