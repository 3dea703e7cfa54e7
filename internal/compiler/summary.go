package compiler

import (
	"sort"

	"github.com/aretw0/livemd/pkg/domain"
)

// Summary describes a parsed document without executing it.
type Summary struct {
	Blocks    int                      `json:"blocks" yaml:"blocks"`
	Kinds     map[domain.BlockKind]int `json:"kinds" yaml:"kinds"`
	Variables []string                 `json:"variables" yaml:"variables"`
	Unknown   int                      `json:"unknown_fences" yaml:"unknown_fences"`
	Errors    []*domain.ParseError     `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings  []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Summarize counts blocks per kind and lists every variable a document
// declares, mutates or collects through a form, including nested branches.
func Summarize(segs []domain.Segment) Summary {
	sum := Summary{Kinds: make(map[domain.BlockKind]int)}
	vars := make(map[string]bool)

	domain.Walk(segs, func(seg domain.Segment) {
		switch s := seg.(type) {
		case *domain.Unknown:
			if s.Tag != FrontmatterTag {
				sum.Unknown++
			}
			return
		case *domain.Literal:
			return
		case *domain.StateBlock:
			for _, a := range s.Assignments {
				vars[a.Name] = true
			}
			sum.Errors = append(sum.Errors, s.Errors...)
		case *domain.SetBlock:
			for _, op := range s.Ops {
				vars[op.Name] = true
			}
			sum.Errors = append(sum.Errors, s.Errors...)
		case *domain.FormBlock:
			for _, f := range s.Form.Fields {
				vars[f.Name] = true
			}
			sum.Warnings = append(sum.Warnings, s.Warnings...)
		case *domain.InvalidBlock:
			sum.Errors = append(sum.Errors, s.Err)
		}
		if b, ok := seg.(domain.Block); ok {
			sum.Blocks++
			sum.Kinds[b.Meta().Kind]++
		}
	})

	sum.Variables = make([]string, 0, len(vars))
	for name := range vars {
		sum.Variables = append(sum.Variables, name)
	}
	sort.Strings(sum.Variables)
	return sum
}
