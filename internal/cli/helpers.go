package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/internal/presentation/tui"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// NewLogger configures the application logger on Stderr, keeping Stdout for
// rendered documents and NDJSON.
func NewLogger(level string, json bool) (*slog.Logger, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, lvl, json), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

var errInterrupted = errors.New("interrupted")

// LinePump reads base line by line on a single goroutine so that successive
// prompts can take turns on it without leaving ghost readers behind.
type LinePump struct {
	lines chan []byte
}

// NewLinePump starts reading base until it fails.
func NewLinePump(base io.Reader) *LinePump {
	p := &LinePump{lines: make(chan []byte)}
	go func() {
		defer close(p.lines)
		br := bufio.NewReader(base)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				p.lines <- line
			}
			if err != nil {
				return
			}
		}
	}()
	return p
}

// Reader returns a reader over the pump that fails once cancel is closed.
func (p *LinePump) Reader(cancel <-chan struct{}) io.Reader {
	return &InterruptibleReader{lines: p.lines, cancel: cancel}
}

// InterruptibleReader reads pumped lines and checks for a cancellation signal.
type InterruptibleReader struct {
	lines   <-chan []byte
	cancel  <-chan struct{}
	pending []byte
}

func (r *InterruptibleReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		select {
		case <-r.cancel:
			return 0, errInterrupted
		case line, ok := <-r.lines:
			if !ok {
				return 0, io.EOF
			}
			r.pending = line
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, errInterrupted) ||
		errors.Is(err, tui.ErrAborted) ||
		errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}
