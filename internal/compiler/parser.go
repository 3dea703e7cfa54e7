package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/livemd/internal/interpolate"
	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/state"
)

// Parser turns documents into typed segments.
type Parser struct {
	logger    *slog.Logger
	extractor *Extractor
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for warnings about skipped content.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a new parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.extractor = NewExtractor(p.logger)
	return p
}

// Parse extracts and parses doc. It never executes anything and never fails:
// malformed blocks become *domain.InvalidBlock segments.
func (p *Parser) Parse(doc string) []domain.Segment {
	return p.parseChunks(p.extractor.Extract(doc))
}

// ParseBlock parses a single block body of the given kind as if it were the
// only fence of a document.
func (p *Parser) ParseBlock(kind domain.BlockKind, info, body string) (domain.Block, error) {
	if !domain.IsBlockKind(string(kind)) {
		return nil, fmt.Errorf("%w %q", domain.ErrUnknownBlock, kind)
	}
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	var sb strings.Builder
	sb.WriteString(fence + string(kind))
	if info != "" {
		sb.WriteString(" " + info)
	}
	sb.WriteString("\n")
	sb.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString(fence + "\n")

	for _, seg := range p.Parse(sb.String()) {
		if b, ok := seg.(domain.Block); ok {
			return b, nil
		}
	}
	return nil, &domain.ParseError{Msg: fmt.Sprintf("no %s block found", kind)}
}

var defaultParser = NewParser()

// Parse parses doc with a parser that discards warnings.
func Parse(doc string) []domain.Segment {
	return defaultParser.Parse(doc)
}

func (p *Parser) parseLines(lines []Line) []domain.Segment {
	return p.parseChunks(p.extractor.extractLines(lines))
}

func (p *Parser) parseChunks(chunks []Chunk) []domain.Segment {
	segs := make([]domain.Segment, 0, len(chunks))
	for _, c := range chunks {
		if c.Fence == nil {
			segs = append(segs, c.Segment)
			continue
		}
		segs = append(segs, p.parseFence(c.Fence))
	}
	return segs
}

func (p *Parser) parseFence(f *Fence) domain.Segment {
	meta := domain.BlockMeta{
		ID:    fmt.Sprintf("%s@%d", f.Kind, f.Range.StartLine),
		Kind:  f.Kind,
		Info:  f.Info,
		Raw:   f.Raw,
		Range: f.Range,
	}
	if f.Unterminated {
		return invalid(meta, "unterminated fence")
	}

	switch f.Kind {
	case domain.BlockState:
		return p.parseState(meta, f.Body)
	case domain.BlockSet:
		return p.parseSet(meta, f.Body)
	case domain.BlockForm:
		return p.parseForm(meta, f.Body)
	case domain.BlockIf:
		return p.parseIf(meta, f.Body)
	case domain.BlockNav:
		return p.parseNav(meta, f.Body)
	case domain.BlockPanel:
		return p.parsePanel(meta, f.Body)
	default:
		return invalid(meta, fmt.Sprintf("unsupported block kind %q", f.Kind))
	}
}

func invalid(meta domain.BlockMeta, msg string) *domain.InvalidBlock {
	return &domain.InvalidBlock{
		BlockMeta: meta,
		Err:       &domain.ParseError{BlockID: meta.ID, Range: meta.Range, Msg: msg},
	}
}

func lineError(meta domain.BlockMeta, l Line, err error) *domain.ParseError {
	return &domain.ParseError{BlockID: meta.ID, Range: l.rng(), Msg: err.Error()}
}

// statements yields the non-blank, non-comment lines of a body.
func statements(body []Line) []Line {
	out := make([]Line, 0, len(body))
	for _, l := range body {
		t := strings.TrimSpace(l.Text)
		if t == "" || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//") {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (p *Parser) parseState(meta domain.BlockMeta, body []Line) *domain.StateBlock {
	b := &domain.StateBlock{BlockMeta: meta}
	for _, l := range statements(body) {
		a, err := parseAssignment(strings.TrimSpace(l.Text))
		if err != nil {
			b.Errors = append(b.Errors, lineError(meta, l, err))
			continue
		}
		a.Line = l.Number
		b.Assignments = append(b.Assignments, a)
	}
	return b
}

func parseAssignment(s string) (domain.Assignment, error) {
	lhs, rhs, ok := strings.Cut(s, "=")
	if !ok {
		return domain.Assignment{}, fmt.Errorf("expected `$name = value`, got %q", s)
	}
	name, err := state.NormalizeName(lhs)
	if err != nil {
		return domain.Assignment{}, err
	}
	v, err := ParseLiteral(rhs)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("$%s: %w", name, err)
	}
	return domain.Assignment{Name: name, Value: v}, nil
}

func (p *Parser) parseSet(meta domain.BlockMeta, body []Line) *domain.SetBlock {
	b := &domain.SetBlock{BlockMeta: meta}
	for _, l := range statements(body) {
		op, err := parseSetOp(strings.TrimSpace(l.Text))
		if err != nil {
			b.Errors = append(b.Errors, lineError(meta, l, err))
			continue
		}
		op.Line = l.Number
		b.Ops = append(b.Ops, op)
	}
	return b
}

func parseSetOp(s string) (domain.SetOp, error) {
	var op domain.SetOp

	if strings.HasPrefix(s, "$") {
		// Shorthand for `set $name = value`.
		op.Verb = domain.VerbSet
	} else {
		verb, rest := s, ""
		if i := strings.IndexAny(s, " \t"); i >= 0 {
			verb, rest = s[:i], s[i+1:]
		}
		op.Verb = domain.SetVerb(strings.ToLower(verb))
		s = rest
	}

	name, rest, err := cutRef(s)
	if err != nil {
		return op, err
	}
	op.Name = name

	switch op.Verb {
	case domain.VerbSet:
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "="))
		if rest == "" {
			return op, fmt.Errorf("set $%s: missing value", name)
		}
		operand, err := ParseOperand(rest)
		if err != nil {
			return op, fmt.Errorf("set $%s: %w", name, err)
		}
		op.Operand = &operand
	case domain.VerbInc, domain.VerbDec:
		if rest == "" {
			return op, nil
		}
		operand, err := ParseOperand(rest)
		if err != nil {
			return op, fmt.Errorf("%s $%s: %w", op.Verb, name, err)
		}
		if operand.Ref == "" && operand.Literal.Kind() != domain.KindNumber {
			return op, fmt.Errorf("%s $%s: amount must be a number, got %s", op.Verb, name, operand.Literal)
		}
		op.Operand = &operand
	case domain.VerbToggle:
		if rest != "" {
			return op, fmt.Errorf("toggle $%s takes no operand", name)
		}
	default:
		return op, fmt.Errorf("unknown verb %q (want set, inc, dec or toggle)", op.Verb)
	}
	return op, nil
}

func (p *Parser) parseForm(meta domain.BlockMeta, body []Line) *domain.FormBlock {
	b := &domain.FormBlock{
		BlockMeta: meta,
		Form:      domain.FormDefinition{BlockID: meta.ID, Title: meta.Info},
	}
	seen := make(map[string]bool)
	for _, l := range statements(body) {
		field, err := parseField(strings.TrimSpace(l.Text))
		if err == nil && seen[field.Name] {
			err = fmt.Errorf("duplicate field %s", field.Name)
		}
		if err != nil {
			warning := fmt.Sprintf("line %d: %v", l.Number, err)
			b.Warnings = append(b.Warnings, warning)
			p.logger.Warn("skipping form field", "block_id", meta.ID, "line", l.Number, "err", err)
			continue
		}
		seen[field.Name] = true
		b.Form.Fields = append(b.Form.Fields, field)
	}
	return b
}

func (p *Parser) parseIf(meta domain.BlockMeta, body []Line) domain.Segment {
	src := meta.Info
	if src == "" {
		for i, l := range body {
			if t := strings.TrimSpace(l.Text); t != "" {
				src = t
				body = body[i+1:]
				break
			}
		}
	}
	if src == "" {
		return invalid(meta, "if block without condition")
	}
	cond, err := ParseCondition(src)
	if err != nil {
		return invalid(meta, err.Error())
	}

	split, err := findElse(body)
	if err != nil {
		return invalid(meta, err.Error())
	}

	b := &domain.IfBlock{BlockMeta: meta, Cond: cond}
	if split < 0 {
		b.Then = p.parseLines(body)
	} else {
		b.Then = p.parseLines(body[:split])
		b.Else = p.parseLines(body[split+1:])
	}
	return b
}

// findElse locates the top-level `else` line, ignoring lines inside nested fences.
func findElse(body []Line) (int, error) {
	split := -1
	var (
		marker byte
		width  int
	)
	for i, l := range body {
		if width > 0 {
			if isCloseFence(l.Text, marker, width) {
				width = 0
			}
			continue
		}
		if m, w, _, ok := openFence(l.Text); ok {
			marker, width = m, w
			continue
		}
		if strings.EqualFold(strings.TrimSpace(l.Text), "else") {
			if split >= 0 {
				return -1, fmt.Errorf("more than one else at line %d", l.Number)
			}
			split = i
		}
	}
	return split, nil
}

func (p *Parser) parseNav(meta domain.BlockMeta, body []Line) *domain.NavBlock {
	b := &domain.NavBlock{BlockMeta: meta}
	for _, l := range statements(body) {
		t := strings.TrimSpace(l.Text)
		t = strings.TrimSpace(strings.TrimLeft(t, "-*"))

		choice := domain.NavChoice{Target: t}
		if label, target, ok := strings.Cut(t, "->"); ok {
			choice.Target = strings.TrimSpace(target)
			if label = strings.TrimSpace(label); label != "" {
				choice.Label = interpolate.Parse(label)
			}
		}
		if choice.Target == "" {
			p.logger.Warn("skipping nav choice without target", "block_id", meta.ID, "line", l.Number)
			continue
		}
		b.Choices = append(b.Choices, choice)
	}
	return b
}

func (p *Parser) parsePanel(meta domain.BlockMeta, body []Line) *domain.PanelBlock {
	b := &domain.PanelBlock{BlockMeta: meta}
	title := meta.Info

	var content []string
	for _, l := range body {
		t := strings.TrimSpace(l.Text)
		if t == "" && len(content) == 0 {
			continue
		}
		if key, val, ok := strings.Cut(t, ":"); ok && len(content) == 0 {
			switch strings.ToLower(key) {
			case "title":
				title = strings.TrimSpace(val)
				continue
			case "content":
				content = append(content, strings.TrimSpace(val))
				continue
			}
		}
		content = append(content, l.Text)
	}

	if title != "" {
		b.Title = interpolate.Parse(title)
	}
	b.Body = interpolate.Parse(strings.Trim(strings.Join(content, "\n"), "\n"))
	return b
}
