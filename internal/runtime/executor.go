package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/livemd/internal/interpolate"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

// DefaultTimeout bounds a pass when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Executor runs parsed documents against a session's store.
type Executor struct {
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	timeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithLifecycleHooks registers pass and block observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(x *Executor) {
		x.hooks = hooks
	}
}

// WithTimeout sets the wall-clock budget of a pass. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(x *Executor) {
		x.timeout = d
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	x := &Executor{logger: logging.NewNop(), timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Timeout returns the configured pass budget.
func (x *Executor) Timeout() time.Duration { return x.timeout }

// Input describes one execution pass.
type Input struct {
	SessionID string
	Segments  []domain.Segment
	Store     *state.Store
	// Answers holds the form answers submitted so far in the session, by block ID.
	// A form with remembered answers applies them instead of pausing.
	Answers map[string]map[string]domain.Value
}

// Checkpoint is what a paused pass leaves behind for resumption.
type Checkpoint struct {
	Result *domain.RenderResult
	// Before is the store content when the paused pass started.
	Before map[string]domain.Value
}

// Execute runs a full pass in document order.
func (x *Executor) Execute(ctx context.Context, in Input) *domain.RenderResult {
	r := x.newRun(ctx, in, in.Store.Snapshot())
	defer r.guard.Stop()

	r.execList(in.Segments, nil)
	return r.finish()
}

// Resume continues a paused pass after the pending form. The answers for
// the pending form must already be present in in.Answers.
func (x *Executor) Resume(ctx context.Context, in Input, cp Checkpoint) (*domain.RenderResult, error) {
	if cp.Result == nil || cp.Result.PendingForm == nil {
		return nil, domain.ErrNoPendingForm
	}
	pending := cp.Result.PendingForm
	if _, ok := in.Answers[pending.BlockID]; !ok {
		return nil, fmt.Errorf("%w: no answers for %s", domain.ErrFormMismatch, pending.BlockID)
	}
	if err := checkPath(in.Segments, pending); err != nil {
		return nil, err
	}

	r := x.newRun(ctx, in, cp.Before)
	defer r.guard.Stop()

	r.out.WriteString(cp.Result.Rendered)
	for _, res := range cp.Result.Results {
		if res.BlockID == pending.BlockID && res.Form != nil {
			continue
		}
		r.results = append(r.results, res)
	}
	r.errors = slices.Clone(cp.Result.Errors)

	r.execList(in.Segments, pending.Path)
	return r.finish(), nil
}

// checkPath verifies that a resume path still leads to the pending form.
func checkPath(segs []domain.Segment, pending *domain.PendingForm) error {
	for i, step := range pending.Path {
		if step.Index < 0 || step.Index >= len(segs) {
			return fmt.Errorf("%w: resume path out of range", domain.ErrFormMismatch)
		}
		seg := segs[step.Index]
		if i == len(pending.Path)-1 {
			if f, ok := seg.(*domain.FormBlock); ok && f.ID == pending.BlockID {
				return nil
			}
			return fmt.Errorf("%w: %s is not at its recorded position", domain.ErrFormMismatch, pending.BlockID)
		}
		ifb, ok := seg.(*domain.IfBlock)
		if !ok {
			return fmt.Errorf("%w: resume path crosses a non-if block", domain.ErrFormMismatch)
		}
		segs = branchOf(ifb, step.Branch)
	}
	return fmt.Errorf("%w: empty resume path", domain.ErrFormMismatch)
}

func branchOf(b *domain.IfBlock, br domain.Branch) []domain.Segment {
	if br == domain.BranchElse {
		return b.Else
	}
	return b.Then
}

// run is the mutable state of one pass. Only the pass goroutine touches it;
// block goroutines read the immutable fields and write to their own step.
type run struct {
	x         *Executor
	ctx       context.Context
	guard     *Guard
	sessionID string
	store     *state.Store
	answers   map[string]map[string]domain.Value
	before    map[string]domain.Value
	started   time.Time

	out       strings.Builder
	results   []domain.ExecutionResult
	errors    []*domain.BlockError
	path      []domain.ResumeStep
	pending   *domain.PendingForm
	timeout   *domain.TimeoutError
	cancelled error
}

func (x *Executor) newRun(ctx context.Context, in Input, before map[string]domain.Value) *run {
	r := &run{
		x:         x,
		ctx:       ctx,
		guard:     NewGuard(ctx, x.timeout),
		sessionID: in.SessionID,
		store:     in.Store,
		answers:   maps.Clone(in.Answers),
		before:    before,
		started:   time.Now(),
	}
	if x.hooks.OnPassStart != nil {
		x.hooks.OnPassStart(ctx, &domain.PassEvent{
			EventBase: r.event(domain.EventPassStart),
			StateSize: in.Store.Size(),
		})
	}
	return r
}

func (r *run) event(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: r.sessionID}
}

func (r *run) halted() bool { return r.pending != nil || r.cancelled != nil }

// execList runs segs in order. A non-empty resume path skips to the recorded
// position and continues after it.
func (r *run) execList(segs []domain.Segment, resume []domain.ResumeStep) {
	start := 0
	if len(resume) > 0 {
		step := resume[0]
		r.path = append(r.path, step)
		if len(resume) == 1 {
			r.exec(segs[step.Index])
		} else {
			r.execList(branchOf(segs[step.Index].(*domain.IfBlock), step.Branch), resume[1:])
		}
		r.path = r.path[:len(r.path)-1]
		start = step.Index + 1
	}

	for i := start; i < len(segs) && !r.halted(); i++ {
		r.path = append(r.path, domain.ResumeStep{Index: i})
		r.exec(segs[i])
		r.path = r.path[:len(r.path)-1]
	}
}

func (r *run) exec(seg domain.Segment) {
	switch s := seg.(type) {
	case *domain.Literal:
		if r.timeout != nil {
			r.out.WriteString(s.Text)
			return
		}
		r.out.WriteString(interpolate.Render(interpolate.Parse(s.Text), r.store.Get))
	case *domain.Unknown:
		r.out.WriteString(s.Text)
	case *domain.StateBlock:
		r.execBlock(s)
	case *domain.SetBlock:
		r.execBlock(s)
	case *domain.FormBlock:
		r.execBlock(s)
	case *domain.IfBlock:
		r.execBlock(s)
	case *domain.NavBlock:
		r.execBlock(s)
	case *domain.PanelBlock:
		r.execBlock(s)
	case *domain.InvalidBlock:
		r.execBlock(s)
	default:
		r.x.logger.Error("unhandled segment type", "type", fmt.Sprintf("%T", seg), "session_id", r.sessionID)
	}
}

func (r *run) execBlock(b domain.Block) {
	meta := b.Meta()
	if r.timeout != nil {
		r.skip(meta)
		return
	}

	began := time.Now()
	s := &step{meta: meta, tx: r.store.Begin()}
	err := r.guard.Run(func(ctx context.Context) {
		if r.x.hooks.OnBlockStart != nil {
			r.x.hooks.OnBlockStart(ctx, &domain.BlockEvent{
				EventBase: r.event(domain.EventBlockStart),
				BlockID:   meta.ID,
				Kind:      meta.Kind,
			})
		}
		r.handle(b, s)
	})

	if errors.Is(err, errDeadline) {
		r.timeout = &domain.TimeoutError{Timeout: r.guard.Timeout(), BlockID: meta.ID}
		r.x.logger.Warn("execution timed out",
			"session_id", r.sessionID, "block_id", meta.ID, "timeout", r.guard.Timeout())
		r.skip(meta)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.cancelled = err
		r.x.logger.Warn("pass cancelled", "session_id", r.sessionID, "block_id", meta.ID, "err", err)
		r.results = append(r.results, domain.ExecutionResult{
			BlockID: meta.ID,
			Kind:    meta.Kind,
			Range:   meta.Range,
			Skipped: true,
		})
		r.blockEnd(meta, "cancelled", 0)
		return
	}

	res := domain.ExecutionResult{BlockID: meta.ID, Kind: meta.Kind, Range: meta.Range}
	if err != nil {
		// The staged writes of a panicking block are dropped.
		r.x.logger.Error("block failed", "session_id", r.sessionID, "block_id", meta.ID, "err", err)
		s = &step{meta: meta}
		s.fail(meta.Range, err)
	} else {
		res.Delta = deltaOf(s.tx.Commit())
	}

	res.RenderedText = s.text
	res.Errors = s.errs
	res.Nav = s.nav
	res.Branch = s.branch
	res.Duration = time.Since(began)

	outcome := "ok"
	switch {
	case s.pause:
		outcome = "paused"
		f := b.(*domain.FormBlock)
		form := f.Form
		res.Form = &form
		r.pending = &domain.PendingForm{
			BlockID: meta.ID,
			Form:    form,
			Path:    slices.Clone(r.path),
			Range:   meta.Range,
		}
	case len(s.errs) > 0:
		outcome = "error"
	}

	writeBlock(&r.out, s.text, s.errs)
	r.errors = append(r.errors, s.errs...)
	r.results = append(r.results, res)
	r.blockEnd(meta, outcome, res.Duration)

	if ifb, ok := b.(*domain.IfBlock); ok && s.branch != "" {
		r.path[len(r.path)-1].Branch = s.branch
		r.execList(branchOf(ifb, s.branch), nil)
	}
}

func (r *run) skip(meta domain.BlockMeta) {
	r.timeout.Skipped++
	r.out.WriteString(SkippedAnnotation(meta))
	r.results = append(r.results, domain.ExecutionResult{
		BlockID: meta.ID,
		Kind:    meta.Kind,
		Range:   meta.Range,
		Skipped: true,
	})
	r.blockEnd(meta, "skipped", 0)
}

func (r *run) blockEnd(meta domain.BlockMeta, outcome string, d time.Duration) {
	if r.x.hooks.OnBlockEnd == nil {
		return
	}
	r.x.hooks.OnBlockEnd(r.ctx, &domain.BlockEvent{
		EventBase: r.event(domain.EventBlockEnd),
		BlockID:   meta.ID,
		Kind:      meta.Kind,
		Outcome:   outcome,
		Duration:  d,
	})
}

func (r *run) finish() *domain.RenderResult {
	after := r.store.Snapshot()
	res := &domain.RenderResult{
		SessionID:   r.sessionID,
		Status:      domain.PassDone,
		Rendered:    r.out.String(),
		State:       after,
		Delta:       domain.Diff(r.before, after),
		Results:     r.results,
		Errors:      r.errors,
		PendingForm: r.pending,
		Timeout:     r.timeout,
	}
	switch {
	case r.timeout != nil:
		res.Status = domain.PassTimedOut
	case r.cancelled != nil:
		res.Status = domain.PassCancelled
	case r.pending != nil:
		res.Status = domain.PassPaused
	}

	if r.x.hooks.OnPassEnd != nil {
		r.x.hooks.OnPassEnd(r.ctx, &domain.PassEvent{
			EventBase: r.event(domain.EventPassEnd),
			Status:    res.Status,
			Blocks:    len(res.Results),
			Errors:    len(res.Errors),
			StateSize: r.store.Size(),
			Duration:  time.Since(r.started),
		})
	}
	return res
}

func deltaOf(changes []state.Change) map[string]any {
	if len(changes) == 0 {
		return nil
	}
	delta := make(map[string]any, len(changes))
	for _, c := range changes {
		if c.Deleted {
			delta[c.Name] = nil
			continue
		}
		delta[c.Name] = c.Value
	}
	return delta
}
