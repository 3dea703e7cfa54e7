// Package interpolate resolves $name references in text against a variable snapshot.
//
// Rendering is pure: a template never mutates the values it reads and a
// missing variable renders as its own unresolved token, so repeated calls
// during live preview always produce the same output for the same input.
package interpolate

import (
	"strings"

	"github.com/aretw0/livemd/pkg/domain"
)

// Lookup resolves a variable name (without the leading $).
type Lookup func(name string) (domain.Value, bool)

// FromMap returns a Lookup over a snapshot.
func FromMap(vars map[string]domain.Value) Lookup {
	return func(name string) (domain.Value, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

// Parse splits text into literal spans and variable references.
// `\$` yields a literal dollar sign; a `$` not followed by an identifier is literal.
func Parse(text string) domain.Template {
	var (
		tmpl domain.Template
		buf  strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			tmpl = append(tmpl, domain.Span{Text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\\' && i+1 < len(text) && text[i+1] == '$':
			buf.WriteByte('$')
			i += 2
		case c == '$' && i+1 < len(text) && isIdentStart(text[i+1]):
			j := i + 2
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			flush()
			tmpl = append(tmpl, domain.Span{Ref: text[i+1 : j], Token: text[i:j]})
			i = j
		default:
			buf.WriteByte(c)
			i++
		}
	}
	flush()
	return tmpl
}

// Render substitutes every reference through lookup.
func Render(t domain.Template, lookup Lookup) string {
	var sb strings.Builder
	for _, span := range t {
		if span.Ref == "" {
			sb.WriteString(span.Text)
			continue
		}
		if lookup != nil {
			if v, ok := lookup(span.Ref); ok && v.IsDefined() {
				sb.WriteString(v.Render())
				continue
			}
		}
		sb.WriteString(span.Token)
	}
	return sb.String()
}

// String parses and renders text in one step.
func String(text string, vars map[string]domain.Value) string {
	if !strings.ContainsRune(text, '$') {
		return text
	}
	return Render(Parse(text), FromMap(vars))
}

// Refs lists the distinct variable names referenced by t, in order of appearance.
func Refs(t domain.Template) []string {
	var (
		out  []string
		seen = make(map[string]bool)
	)
	for _, span := range t {
		if span.Ref != "" && !seen[span.Ref] {
			seen[span.Ref] = true
			out = append(out, span.Ref)
		}
	}
	return out
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
