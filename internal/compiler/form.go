package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

// parseField parses one form line: `name: type [label words] [required]
// [min=N] [max=N] [options=a,b,c]`. Labels with spaces may be quoted.
func parseField(line string) (domain.FieldSpec, error) {
	var f domain.FieldSpec

	rawName, spec, ok := strings.Cut(line, ":")
	if !ok {
		return f, fmt.Errorf("expected `name: type`, got %q", line)
	}
	name, err := state.NormalizeName(rawName)
	if err != nil {
		return f, err
	}
	f.Name = name

	words, err := shellwords.Parse(spec)
	if err != nil {
		return f, fmt.Errorf("field %s: %w", name, err)
	}
	if len(words) == 0 {
		return f, fmt.Errorf("field %s: missing type", name)
	}
	typ := strings.ToLower(words[0])
	if !domain.IsFieldType(typ) {
		return f, fmt.Errorf("field %s: unknown type %q", name, words[0])
	}
	f.Type = domain.FieldType(typ)

	var label []string
	for _, w := range words[1:] {
		key, val, hasVal := strings.Cut(w, "=")
		switch {
		case strings.EqualFold(w, "required"):
			f.Required = true
		case hasVal && strings.EqualFold(key, "min"):
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return f, fmt.Errorf("field %s: min is not a number: %q", name, val)
			}
			f.Min = &n
		case hasVal && strings.EqualFold(key, "max"):
			n, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return f, fmt.Errorf("field %s: max is not a number: %q", name, val)
			}
			f.Max = &n
		case hasVal && strings.EqualFold(key, "options"):
			f.Options = splitOptions(val)
		case hasVal && strings.EqualFold(key, "label"):
			label = append(label, val)
		default:
			label = append(label, w)
		}
	}
	f.Label = strings.Join(label, " ")

	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return f, fmt.Errorf("field %s: min %s is greater than max %s",
			name, domain.FormatNumber(*f.Min), domain.FormatNumber(*f.Max))
	}
	if (f.Type == domain.FieldSelect || f.Type == domain.FieldRadio) && len(f.Options) == 0 {
		return f, fmt.Errorf("field %s: %s requires options", name, f.Type)
	}
	return f, nil
}

func splitOptions(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
