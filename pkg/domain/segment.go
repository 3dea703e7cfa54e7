package domain

import (
	"encoding/json"
	"fmt"
)

// BlockKind identifies the runtime verb of a fenced block.
type BlockKind string

const (
	BlockState BlockKind = "state"
	BlockSet   BlockKind = "set"
	BlockForm  BlockKind = "form"
	BlockIf    BlockKind = "if"
	BlockNav   BlockKind = "nav"
	BlockPanel BlockKind = "panel"
)

// BlockKinds lists the recognized runtime verbs.
var BlockKinds = []BlockKind{BlockState, BlockSet, BlockForm, BlockIf, BlockNav, BlockPanel}

// IsBlockKind reports whether tag names a recognized runtime verb.
func IsBlockKind(tag string) bool {
	for _, k := range BlockKinds {
		if string(k) == tag {
			return true
		}
	}
	return false
}

// SourceRange locates a segment in the raw document.
// Lines are 1-based and inclusive; offsets are byte offsets, end exclusive.
type SourceRange struct {
	StartLine   int `json:"start_line"`
	EndLine     int `json:"end_line"`
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}

func (r SourceRange) String() string {
	if r.StartLine == r.EndLine {
		return fmt.Sprintf("line %d", r.StartLine)
	}
	return fmt.Sprintf("lines %d-%d", r.StartLine, r.EndLine)
}

// Line returns a single-line range inside r.
func (r SourceRange) Line(n int) SourceRange {
	return SourceRange{StartLine: n, EndLine: n}
}

// Segment is a closed union: literal prose, an unrecognized fenced region,
// or one of the runtime block kinds. Only this package can add variants.
type Segment interface {
	SegmentType() string
	SourceRange() SourceRange
	segment()
}

// Block is implemented by every runtime block variant.
type Block interface {
	Segment
	Meta() BlockMeta
}

// BlockMeta holds what every runtime block carries regardless of its kind.
type BlockMeta struct {
	ID    string      `json:"id"`
	Kind  BlockKind   `json:"kind"`
	Info  string      `json:"info,omitempty"`
	Raw   string      `json:"raw"`
	Range SourceRange `json:"range"`
}

// Literal is prose between blocks. Its text is interpolated on render.
type Literal struct {
	Text  string      `json:"text"`
	Range SourceRange `json:"range"`
}

// Unknown is a fenced region whose tag is not a runtime verb.
// It is rendered verbatim, never interpolated.
type Unknown struct {
	Tag   string      `json:"tag,omitempty"`
	Text  string      `json:"text"`
	Range SourceRange `json:"range"`
}

// Span is one piece of a template: literal text or a variable reference.
type Span struct {
	Text string `json:"text,omitempty"`
	Ref  string `json:"ref,omitempty"`
	// Token is the source spelling of a reference, rendered when it is unresolved.
	Token string `json:"token,omitempty"`
}

// Template is a parsed interpolation template.
type Template []Span

// Operand is either a literal value or a reference to another variable.
type Operand struct {
	Literal Value  `json:"literal,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

func (o Operand) String() string {
	if o.Ref != "" {
		return "$" + o.Ref
	}
	return o.Literal.String()
}

// Assignment is one `$name = literal` statement of a state block.
type Assignment struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
	Line  int    `json:"line"`
}

// SetVerb is the mutation applied by a set statement.
type SetVerb string

const (
	VerbSet    SetVerb = "set"
	VerbInc    SetVerb = "inc"
	VerbDec    SetVerb = "dec"
	VerbToggle SetVerb = "toggle"
)

// SetOp is one statement of a set block.
type SetOp struct {
	Verb    SetVerb  `json:"verb"`
	Name    string   `json:"name"`
	Operand *Operand `json:"operand,omitempty"`
	Line    int      `json:"line"`
}

// CompareOp is a comparison operator in an if condition.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpLt CompareOp = "<"
	OpGt CompareOp = ">"
	OpLe CompareOp = "<="
	OpGe CompareOp = ">="
)

// Condition is a truthiness test on a variable or a single comparison.
type Condition struct {
	Name   string    `json:"name"`
	Negate bool      `json:"negate,omitempty"`
	Op     CompareOp `json:"op,omitempty"`
	Right  *Operand  `json:"right,omitempty"`
	Source string    `json:"source"`
}

// NavChoice is one navigation target with an optional label.
type NavChoice struct {
	Target string   `json:"target"`
	Label  Template `json:"label,omitempty"`
}

// StateBlock declares variables.
type StateBlock struct {
	BlockMeta
	Assignments []Assignment  `json:"assignments"`
	Errors      []*ParseError `json:"errors,omitempty"`
}

// SetBlock mutates variables.
type SetBlock struct {
	BlockMeta
	Ops    []SetOp       `json:"ops"`
	Errors []*ParseError `json:"errors,omitempty"`
}

// FormBlock asks the host to collect answers.
type FormBlock struct {
	BlockMeta
	Form     FormDefinition `json:"form"`
	Warnings []string       `json:"warnings,omitempty"`
}

// IfBlock executes exactly one of its branches.
type IfBlock struct {
	BlockMeta
	Cond Condition `json:"condition"`
	Then []Segment `json:"-"`
	Else []Segment `json:"-"`
}

// NavBlock describes navigation choices. It never mutates state.
type NavBlock struct {
	BlockMeta
	Choices []NavChoice `json:"choices"`
}

// PanelBlock renders an interpolated template.
type PanelBlock struct {
	BlockMeta
	Title Template `json:"title,omitempty"`
	Body  Template `json:"body"`
}

// InvalidBlock is a runtime block that could not be parsed at all.
type InvalidBlock struct {
	BlockMeta
	Err *ParseError `json:"error"`
}

func (*Literal) segment()      {}
func (*Unknown) segment()      {}
func (*StateBlock) segment()   {}
func (*SetBlock) segment()     {}
func (*FormBlock) segment()    {}
func (*IfBlock) segment()      {}
func (*NavBlock) segment()     {}
func (*PanelBlock) segment()   {}
func (*InvalidBlock) segment() {}

func (s *Literal) SegmentType() string { return "literal" }
func (s *Unknown) SegmentType() string { return "unknown" }
func (m BlockMeta) SegmentType() string {
	return string(m.Kind)
}
func (s *InvalidBlock) SegmentType() string { return "invalid" }

func (s *Literal) SourceRange() SourceRange { return s.Range }
func (s *Unknown) SourceRange() SourceRange { return s.Range }
func (m BlockMeta) SourceRange() SourceRange {
	return m.Range
}

// Meta returns the block's common metadata.
func (m BlockMeta) Meta() BlockMeta { return m }

// SegmentEnvelope tags a segment with its variant name for JSON encoding.
type SegmentEnvelope struct {
	Type string  `json:"type"`
	Data Segment `json:"data"`
}

// Envelope wraps segments for JSON encoding.
func Envelope(segs []Segment) []SegmentEnvelope {
	out := make([]SegmentEnvelope, 0, len(segs))
	for _, s := range segs {
		out = append(out, SegmentEnvelope{Type: s.SegmentType(), Data: s})
	}
	return out
}

// MarshalJSON encodes the branches as enveloped segment lists.
func (b *IfBlock) MarshalJSON() ([]byte, error) {
	type alias IfBlock
	return json.Marshal(struct {
		*alias
		Then []SegmentEnvelope `json:"then"`
		Else []SegmentEnvelope `json:"else,omitempty"`
	}{
		alias: (*alias)(b),
		Then:  Envelope(b.Then),
		Else:  Envelope(b.Else),
	})
}

// Walk visits segs depth first, descending into both branches of if blocks.
func Walk(segs []Segment, fn func(Segment)) {
	for _, s := range segs {
		fn(s)
		if b, ok := s.(*IfBlock); ok {
			Walk(b.Then, fn)
			Walk(b.Else, fn)
		}
	}
}
