package domain

import "time"

// PassStatus is the terminal state of an execution pass.
type PassStatus string

const (
	PassDone      PassStatus = "done"
	PassPaused    PassStatus = "paused"    // Stopped at a form block, waiting for answers
	PassTimedOut  PassStatus = "timed_out" // Guard deadline expired, partial render
	PassCancelled PassStatus = "cancelled" // Caller gave up, partial render
)

// Branch selects the arm of an if block.
type Branch string

const (
	BranchThen Branch = "then"
	BranchElse Branch = "else"
)

// ResumeStep is one level of a resume path: the index of a segment in its list
// and, for if blocks on the way down, the branch that was taken.
type ResumeStep struct {
	Index  int    `json:"index"`
	Branch Branch `json:"branch,omitempty"`
}

// PendingForm is the marker returned when a pass stops at a form block.
// It is plain data so hosts can persist it between the two protocol phases.
type PendingForm struct {
	BlockID string         `json:"block_id"`
	Form    FormDefinition `json:"form"`
	Path    []ResumeStep   `json:"path"`
	Range   SourceRange    `json:"range"`
}

// ExecutionResult is the outcome of a single block.
type ExecutionResult struct {
	BlockID      string          `json:"block_id"`
	Kind         BlockKind       `json:"kind"`
	Range        SourceRange     `json:"range"`
	RenderedText string          `json:"rendered_text,omitempty"`
	Delta        map[string]any  `json:"delta,omitempty"`
	Errors       []*BlockError   `json:"errors,omitempty"`
	Skipped      bool            `json:"skipped,omitempty"`
	Form         *FormDefinition `json:"form,omitempty"`
	Nav          []NavChoiceView `json:"nav,omitempty"`
	Branch       Branch          `json:"branch,omitempty"`
	Duration     time.Duration   `json:"duration_ns,omitempty"`
}

// NavChoiceView is a rendered navigation choice.
type NavChoiceView struct {
	Target string `json:"target"`
	Label  string `json:"label"`
}

// RenderResult aggregates a whole pass.
type RenderResult struct {
	SessionID   string            `json:"session_id"`
	Status      PassStatus        `json:"status"`
	Rendered    string            `json:"rendered"`
	State       map[string]Value  `json:"state"`
	Delta       map[string]any    `json:"delta,omitempty"`
	Results     []ExecutionResult `json:"results"`
	Errors      []*BlockError     `json:"errors,omitempty"`
	PendingForm *PendingForm      `json:"pending_form,omitempty"`
	Timeout     *TimeoutError     `json:"timeout,omitempty"`
}

// Err returns the pass-level error, if any. Only timeouts propagate.
func (r *RenderResult) Err() error {
	if r == nil || r.Timeout == nil {
		return nil
	}
	return r.Timeout
}
