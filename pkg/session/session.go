package session

import (
	"maps"
	"time"

	"github.com/aretw0/livemd/internal/runtime"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

// Session is the runtime context of one document editor.
// Access it only through Manager.Do, which holds the session lock.
type Session struct {
	ID      string
	Created time.Time
	Store   *state.Store

	// Answers are the submitted form answers by block ID. They are replayed
	// when the same form is reached again in a later pass.
	Answers map[string]map[string]domain.Value

	// Checkpoint is set while a pass is paused at a form.
	Checkpoint *runtime.Checkpoint
	// Timeout is the pass budget the paused pass was started with.
	Timeout time.Duration

	// Segments is the parsed document of the last full pass.
	Segments []domain.Segment
}

func newSession(id string, limit int) *Session {
	return &Session{
		ID:      id,
		Created: time.Now(),
		Store:   state.New(limit),
		Answers: make(map[string]map[string]domain.Value),
	}
}

// Paused reports whether the last pass stopped at a form.
func (s *Session) Paused() bool {
	return s.Checkpoint != nil && s.Checkpoint.Result != nil && s.Checkpoint.Result.PendingForm != nil
}

// Remember stores the answers of a form so later passes replay them.
func (s *Session) Remember(blockID string, answers map[string]domain.Value) {
	s.Answers[blockID] = maps.Clone(answers)
}

// Reset clears variables, remembered answers and any paused pass.
func (s *Session) Reset() {
	s.Store.Reset()
	clear(s.Answers)
	s.Checkpoint = nil
	s.Timeout = 0
	s.Segments = nil
}
