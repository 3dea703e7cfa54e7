package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseLiteral parses a scalar literal: a quoted string, a number or a
// boolean. Bare words are rejected so that typos do not become strings.
func ParseLiteral(s string) (domain.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Value{}, fmt.Errorf("missing value")
	}
	switch s[0] {
	case '"':
		str, err := strconv.Unquote(s)
		if err != nil {
			return domain.Value{}, fmt.Errorf("invalid string literal %s", s)
		}
		return domain.String(str), nil
	case '\'':
		if len(s) < 2 || s[len(s)-1] != '\'' || strings.ContainsRune(s[1:len(s)-1], '\'') {
			return domain.Value{}, fmt.Errorf("invalid string literal %s", s)
		}
		return domain.String(s[1 : len(s)-1]), nil
	}

	switch strings.ToLower(s) {
	case "true":
		return domain.Bool(true), nil
	case "false":
		return domain.Bool(false), nil
	}

	if numberPattern.MatchString(s) {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Value{}, fmt.Errorf("number out of range: %s", s)
		}
		return domain.Number(n), nil
	}
	return domain.Value{}, fmt.Errorf("invalid literal %q (strings must be quoted)", s)
}

// ParseOperand parses a literal or a $ref.
func ParseOperand(s string) (domain.Operand, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "$") {
		name, err := state.NormalizeName(s)
		if err != nil {
			return domain.Operand{}, err
		}
		return domain.Operand{Ref: name}, nil
	}
	v, err := ParseLiteral(s)
	if err != nil {
		return domain.Operand{}, err
	}
	return domain.Operand{Literal: v}, nil
}

// cutRef splits a leading $name (or bare name) from s.
func cutRef(s string) (name, rest string, err error) {
	s = strings.TrimSpace(s)
	i := 0
	if strings.HasPrefix(s, "$") {
		i = 1
	}
	j := i
	for j < len(s) && isIdent(s[j], j == i) {
		j++
	}
	if j == i {
		return "", s, fmt.Errorf("expected a variable name, got %q", s)
	}
	return s[i:j], strings.TrimSpace(s[j:]), nil
}

func isIdent(c byte, first bool) bool {
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && c >= '0' && c <= '9'
}
