package runtime

import (
	"sort"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

// step collects what one block produced. It is owned by the block goroutine
// until the guard hands it back.
type step struct {
	meta   domain.BlockMeta
	tx     *state.Tx
	text   string
	errs   []*domain.BlockError
	branch domain.Branch
	nav    []domain.NavChoiceView
	pause  bool
}

func (s *step) fail(rng domain.SourceRange, err error) {
	s.errs = append(s.errs, domain.NewBlockError(s.meta.ID, rng, err))
}

func (s *step) parseErrors(errs []*domain.ParseError) {
	for _, pe := range errs {
		s.fail(pe.Range, pe)
	}
}

func (s *step) sortErrors() {
	sort.SliceStable(s.errs, func(i, j int) bool {
		return s.errs[i].Range.StartLine < s.errs[j].Range.StartLine
	})
}

func lineRange(line int) domain.SourceRange {
	return domain.SourceRange{StartLine: line, EndLine: line}
}

// handle dispatches a block to its kind handler.
func (r *run) handle(b domain.Block, s *step) {
	switch b := b.(type) {
	case *domain.StateBlock:
		r.handleState(b, s)
	case *domain.SetBlock:
		r.handleSet(b, s)
	case *domain.FormBlock:
		r.handleForm(b, s)
	case *domain.IfBlock:
		r.handleIf(b, s)
	case *domain.NavBlock:
		s.text, s.nav = renderNav(b, s.tx.Lookup)
	case *domain.PanelBlock:
		s.text = renderPanel(b, s.tx.Lookup)
	case *domain.InvalidBlock:
		s.fail(b.Err.Range, b.Err)
	}
}

func (r *run) handleState(b *domain.StateBlock, s *step) {
	s.parseErrors(b.Errors)
	for _, a := range b.Assignments {
		if err := s.tx.Set(a.Name, a.Value); err != nil {
			s.fail(lineRange(a.Line), err)
		}
	}
	s.sortErrors()
}

func (r *run) handleSet(b *domain.SetBlock, s *step) {
	s.parseErrors(b.Errors)
	for _, op := range b.Ops {
		v, err := apply(s.tx, op)
		if err == nil {
			err = s.tx.Set(op.Name, v)
		}
		if err != nil {
			s.fail(lineRange(op.Line), err)
		}
	}
	s.sortErrors()
}

func (r *run) handleForm(b *domain.FormBlock, s *step) {
	answers, ok := r.answers[b.ID]
	if !ok {
		if len(b.Form.Fields) > 0 {
			s.pause = true
		}
		return
	}
	batch := make(map[string]domain.Value, len(answers))
	for name, v := range answers {
		if _, known := b.Form.Field(name); known {
			batch[name] = v
		}
	}
	if err := s.tx.Apply(batch); err != nil {
		s.fail(b.Range, err)
	}
}

func (r *run) handleIf(b *domain.IfBlock, s *step) {
	ok, err := Evaluate(s.tx, b.Cond)
	if err != nil {
		s.fail(b.Range, err)
		return
	}
	if ok {
		s.branch = domain.BranchThen
	} else {
		s.branch = domain.BranchElse
	}
}
