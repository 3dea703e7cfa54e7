package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/livemd"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/internal/presentation/tui"
	"github.com/aretw0/livemd/pkg/adapters/loam"
	"github.com/aretw0/livemd/pkg/domain"
)

// AnswerSource collects the answers of a pending form.
type AnswerSource interface {
	Ask(form domain.FormDefinition) (map[string]any, error)
}

// JSONAnswers reads one JSON object of answers per pending form.
type JSONAnswers struct {
	dec *json.Decoder
}

// NewJSONAnswers decodes answers from r.
func NewJSONAnswers(r io.Reader) *JSONAnswers {
	return &JSONAnswers{dec: json.NewDecoder(r)}
}

func (j *JSONAnswers) Ask(form domain.FormDefinition) (map[string]any, error) {
	var answers map[string]any
	if err := j.dec.Decode(&answers); err != nil {
		return nil, fmt.Errorf("answers for %s: %w", form.BlockID, err)
	}
	return answers, nil
}

// Runner drives a document to completion, asking for every form it stops at.
type Runner struct {
	Engine  *livemd.Engine
	Answers AnswerSource
	Out     io.Writer
	Render  tui.Render
	JSON    bool
	Logger  *slog.Logger

	printed string
}

// Run executes docID in the session and keeps submitting answers until the
// pass no longer pauses. A timed out pass is reported, not returned as an error.
func (r *Runner) Run(ctx context.Context, sessionID, docID string, opts domain.ExecuteOptions) (*domain.RenderResult, error) {
	r.printed = ""
	res, err := r.Engine.ExecuteDocument(ctx, sessionID, docID, opts)
	for {
		var te *domain.TimeoutError
		if err != nil && !(errors.As(err, &te) && res != nil) {
			return res, err
		}
		if perr := r.emit(res); perr != nil {
			return res, perr
		}
		if te != nil {
			r.logger().Warn("pass timed out", "session_id", sessionID, "skipped", te.Skipped)
			return res, nil
		}
		if res.PendingForm == nil || r.Answers == nil {
			return res, nil
		}

		answers, aerr := r.Answers.Ask(res.PendingForm.Form)
		if aerr != nil {
			return res, aerr
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res, err = r.Engine.SubmitForm(ctx, sessionID, res.PendingForm.BlockID, answers)
	}
}

// emit writes the part of the render not shown yet. Resumed passes repeat
// the prefix rendered before the form.
func (r *Runner) emit(res *domain.RenderResult) error {
	if r.JSON {
		return json.NewEncoder(r.Out).Encode(res)
	}
	text := res.Rendered
	if strings.HasPrefix(text, r.printed) {
		text = text[len(r.printed):]
	}
	r.printed = res.Rendered

	if strings.TrimSpace(text) != "" {
		render := r.Render
		if render == nil {
			render = tui.Plain
		}
		out, err := render(text)
		if err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		fmt.Fprint(r.Out, out)
		if !strings.HasSuffix(out, "\n") {
			fmt.Fprintln(r.Out)
		}
	}
	if res.Timeout != nil {
		printSystemMessage(r.Out, "Timed out after %s, %d blocks skipped.", res.Timeout.Timeout, res.Timeout.Skipped)
	}
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

// runEnv is what one run command holds open.
type runEnv struct {
	engine *livemd.Engine
	loader *loam.Loader
	bridge *Bridge
	docID  string
	id     string
	exec   domain.ExecuteOptions
}

func (e *runEnv) Close() {
	_ = e.engine.Shutdown()
	_ = e.bridge.Close()
}

// prepare resolves the target, opens the bridge and the session.
func prepare(ctx context.Context, opts RunOptions) (*runEnv, error) {
	dir, docID, err := ResolveTarget(opts.Path)
	if err != nil {
		return nil, err
	}
	if opts.DocumentID != "" {
		docID = opts.DocumentID
	}
	loader, err := loam.Open(dir)
	if err != nil {
		return nil, err
	}
	exec, err := opts.executeOptions()
	if err != nil {
		return nil, err
	}

	bridge, err := OpenBridge(opts.Bridge)
	if err != nil {
		return nil, err
	}
	resume := opts.SessionID != "" && bridge.Enabled()
	if resume && opts.Fresh {
		if err := bridge.Store.Drop(ctx, opts.SessionID); err != nil {
			_ = bridge.Close()
			return nil, fmt.Errorf("failed to reset session: %w", err)
		}
	}

	engine, err := CreateEngine(EngineOptions{
		Config:  opts.Config,
		Bridge:  bridge,
		Loader:  loader,
		Logger:  opts.Logger,
		Restore: resume,
	})
	if err != nil {
		_ = bridge.Close()
		return nil, err
	}
	env := &runEnv{engine: engine, loader: loader, bridge: bridge, docID: docID, exec: exec}

	env.id, err = engine.Open(ctx, opts.SessionID)
	if err != nil {
		env.Close()
		return nil, err
	}
	// A restored session continues from its variables instead of starting fresh.
	if resume && exec.Prior == nil {
		env.exec.Carry = true
	}
	return env, nil
}

func (o RunOptions) streams() (io.Reader, io.Writer) {
	in, out := o.In, o.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return in, out
}

func (o RunOptions) renderer(out io.Writer) tui.Render {
	if o.Plain || o.JSON {
		return tui.Plain
	}
	f, _ := out.(*os.File)
	return tui.NewRenderer(f)
}

// RunSession executes a single document until it completes.
func RunSession(opts RunOptions) error {
	in, out := opts.streams()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	env, err := prepare(sigCtx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	r := &Runner{
		Engine: env.engine,
		Out:    out,
		Render: opts.renderer(out),
		JSON:   opts.JSON,
		Logger: opts.Logger,
	}
	if opts.JSON {
		r.Answers = NewJSONAnswers(in)
	} else {
		if !opts.Plain {
			tui.PrintBanner(out, livemd.Version)
		}
		r.Answers = tui.NewPrompter(in, out)
	}

	_, runErr := r.Run(sigCtx, env.id, env.docID, env.exec)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}
	if runErr != nil && isInterrupted(runErr) && !opts.JSON {
		printSystemMessage(out, "Interrupted in session '%s'.", env.id)
	}
	return handleExecutionError(runErr)
}
