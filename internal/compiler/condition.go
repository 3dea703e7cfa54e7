package compiler

import (
	"fmt"
	"strings"

	"github.com/aretw0/livemd/pkg/domain"
)

// operators are matched longest first.
var operators = []domain.CompareOp{
	domain.OpEq, domain.OpNe, domain.OpLe, domain.OpGe, domain.OpLt, domain.OpGt,
}

// ParseCondition parses `$var`, `!$var`, `$var op literal` or `$var op $var`.
func ParseCondition(src string) (domain.Condition, error) {
	src = strings.TrimSpace(src)
	cond := domain.Condition{Source: src}
	if src == "" {
		return cond, fmt.Errorf("missing condition")
	}

	s := src
	if strings.HasPrefix(s, "!") {
		cond.Negate = true
		s = strings.TrimSpace(s[1:])
	}
	if !strings.HasPrefix(s, "$") {
		return cond, fmt.Errorf("condition must start with a $variable: %q", src)
	}

	name, rest, err := cutRef(s)
	if err != nil {
		return cond, err
	}
	cond.Name = name
	if rest == "" {
		return cond, nil
	}
	if cond.Negate {
		return cond, fmt.Errorf("negation applies to a single variable: %q", src)
	}

	for _, op := range operators {
		if !strings.HasPrefix(rest, string(op)) {
			continue
		}
		right := strings.TrimSpace(rest[len(op):])
		if right == "" {
			return cond, fmt.Errorf("missing right-hand side after %s", op)
		}
		operand, err := ParseOperand(right)
		if err != nil {
			return cond, err
		}
		cond.Op = op
		cond.Right = &operand
		return cond, nil
	}

	if strings.Contains(rest, "&&") || strings.Contains(rest, "||") {
		return cond, fmt.Errorf("compound conditions are not supported: %q", src)
	}
	return cond, fmt.Errorf("unexpected %q after $%s", rest, name)
}
