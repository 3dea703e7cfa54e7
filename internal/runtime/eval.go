package runtime

import (
	"math"
	"strings"

	"github.com/aretw0/livemd/pkg/domain"
)

// view is the read side of a pass: the store overlaid with staged writes.
type view interface {
	Get(name string) (domain.Value, bool)
}

func resolve(v view, o domain.Operand) (domain.Value, error) {
	if o.Ref == "" {
		return o.Literal, nil
	}
	val, ok := v.Get(o.Ref)
	if !ok {
		return domain.Value{}, &domain.UndefinedVariableError{Name: o.Ref}
	}
	return val, nil
}

// Evaluate tests a condition. An undefined variable is falsy; ordering
// comparisons require both sides to be numbers or both to be strings.
func Evaluate(v view, c domain.Condition) (bool, error) {
	left, _ := v.Get(c.Name)
	if c.Right == nil {
		return left.Truthy() != c.Negate, nil
	}

	var right domain.Value
	if c.Right.Ref != "" {
		right, _ = v.Get(c.Right.Ref)
	} else {
		right = c.Right.Literal
	}

	switch c.Op {
	case domain.OpEq:
		return left.Equal(right) && left.IsDefined(), nil
	case domain.OpNe:
		return !left.Equal(right) || !left.IsDefined(), nil
	}

	mismatch := func() error {
		return &domain.TypeMismatchError{Name: c.Name, Op: string(c.Op), Want: right.Kind(), Got: left.Kind()}
	}
	if !left.IsDefined() || !right.IsDefined() || left.Kind() != right.Kind() {
		return false, mismatch()
	}

	var cmp int
	switch left.Kind() {
	case domain.KindNumber:
		l, _ := left.Num()
		r, _ := right.Num()
		switch {
		case l < r:
			cmp = -1
		case l > r:
			cmp = 1
		}
	case domain.KindString:
		l, _ := left.Str()
		r, _ := right.Str()
		cmp = strings.Compare(l, r)
	default:
		return false, mismatch()
	}

	switch c.Op {
	case domain.OpLt:
		return cmp < 0, nil
	case domain.OpGt:
		return cmp > 0, nil
	case domain.OpLe:
		return cmp <= 0, nil
	case domain.OpGe:
		return cmp >= 0, nil
	}
	return false, mismatch()
}

// apply computes the new value of a set statement.
func apply(v view, op domain.SetOp) (domain.Value, error) {
	current, declared := v.Get(op.Name)

	switch op.Verb {
	case domain.VerbSet:
		if op.Operand == nil {
			return domain.Value{}, &domain.UndefinedVariableError{Name: op.Name}
		}
		return resolve(v, *op.Operand)

	case domain.VerbInc, domain.VerbDec:
		base := 0.0
		if declared {
			n, ok := current.Num()
			if !ok {
				return domain.Value{}, &domain.TypeMismatchError{Name: op.Name, Op: string(op.Verb), Want: domain.KindNumber, Got: current.Kind()}
			}
			base = n
		}
		amount := 1.0
		if op.Operand != nil {
			val, err := resolve(v, *op.Operand)
			if err != nil {
				return domain.Value{}, err
			}
			n, ok := val.Num()
			if !ok {
				name := op.Operand.Ref
				if name == "" {
					name = op.Name
				}
				return domain.Value{}, &domain.TypeMismatchError{Name: name, Op: string(op.Verb), Want: domain.KindNumber, Got: val.Kind()}
			}
			amount = n
		}
		if op.Verb == domain.VerbDec {
			amount = -amount
		}
		sum := base + amount
		if math.IsInf(sum, 0) || math.IsNaN(sum) {
			return domain.Value{}, &domain.RangeError{Name: op.Name, Op: string(op.Verb)}
		}
		return domain.Number(sum), nil

	case domain.VerbToggle:
		if !declared {
			return domain.Bool(true), nil
		}
		b, ok := current.Boolean()
		if !ok {
			return domain.Value{}, &domain.TypeMismatchError{Name: op.Name, Op: string(op.Verb), Want: domain.KindBool, Got: current.Kind()}
		}
		return domain.Bool(!b), nil
	}
	return domain.Value{}, &domain.TypeMismatchError{Name: op.Name, Op: string(op.Verb)}
}
