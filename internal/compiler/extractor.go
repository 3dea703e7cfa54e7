package compiler

import (
	"log/slog"
	"strings"

	"github.com/aretw0/livemd/internal/logging"
	"github.com/aretw0/livemd/pkg/domain"
)

// Line is one source line with its absolute position in the document.
type Line struct {
	Text   string // without the line terminator
	Full   string // with the line terminator, if any
	Number int    // 1-based
	Offset int    // byte offset of the first character
}

func (l Line) end() int { return l.Offset + len(l.Full) }

func (l Line) rng() domain.SourceRange {
	return domain.SourceRange{
		StartLine:   l.Number,
		EndLine:     l.Number,
		StartOffset: l.Offset,
		EndOffset:   l.Offset + len(l.Text),
	}
}

// Fence is a recognized runtime block before its body is parsed.
type Fence struct {
	Kind         domain.BlockKind
	Info         string // info string after the tag
	Body         []Line
	Raw          string
	Range        domain.SourceRange
	Unterminated bool
}

// Chunk is one item of an extracted document: either a finished segment
// (prose or an unrecognized fence) or a runtime fence awaiting parsing.
type Chunk struct {
	Segment domain.Segment
	Fence   *Fence
}

// Extractor scans documents for fenced runtime blocks.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger discards output.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract splits doc into ordered chunks. It is pure: the same input always
// yields the same chunks.
// A leading YAML frontmatter block becomes an Unknown segment tagged
// "frontmatter" so it is rendered verbatim.
func (x *Extractor) Extract(doc string) []Chunk {
	lines := SplitLines(doc, 1, 0)
	if n := frontmatterEnd(lines); n > 0 {
		fm := lines[:n]
		chunk := Chunk{Segment: &domain.Unknown{Tag: FrontmatterTag, Text: joinFull(fm), Range: rangeOf(fm)}}
		return append([]Chunk{chunk}, x.extractLines(lines[n:])...)
	}
	return x.extractLines(lines)
}

// FrontmatterTag tags the Unknown segment holding a document's frontmatter.
const FrontmatterTag = "frontmatter"

// frontmatterEnd returns the number of lines of a leading `---` block, or 0.
func frontmatterEnd(lines []Line) int {
	if len(lines) < 2 || strings.TrimRight(lines[0].Text, " ") != "---" {
		return 0
	}
	for i := 1; i < len(lines); i++ {
		if t := strings.TrimRight(lines[i].Text, " "); t == "---" || t == "..." {
			return i + 1
		}
	}
	return 0
}

// SplitLines breaks text into lines numbered from firstLine, with offsets
// starting at baseOffset.
func SplitLines(text string, firstLine, baseOffset int) []Line {
	var lines []Line
	offset := baseOffset
	n := firstLine
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		full := text
		if i >= 0 {
			full = text[:i+1]
		}
		body := strings.TrimSuffix(strings.TrimSuffix(full, "\n"), "\r")
		lines = append(lines, Line{Text: body, Full: full, Number: n, Offset: offset})
		offset += len(full)
		text = text[len(full):]
		n++
	}
	return lines
}

func (x *Extractor) extractLines(lines []Line) []Chunk {
	var chunks []Chunk
	prose := 0

	flushProse := func(upTo int) {
		if upTo <= prose {
			return
		}
		chunks = append(chunks, Chunk{Segment: literalOf(lines[prose:upTo])})
	}

	for i := 0; i < len(lines); {
		marker, width, info, ok := openFence(lines[i].Text)
		if !ok {
			i++
			continue
		}

		closing := -1
		for j := i + 1; j < len(lines); j++ {
			if isCloseFence(lines[j].Text, marker, width) {
				closing = j
				break
			}
		}
		last := closing
		if closing < 0 {
			last = len(lines) - 1
		}

		flushProse(i)

		tag, rest := splitInfo(info)
		region := lines[i : last+1]
		rng := rangeOf(region)
		raw := joinFull(region)

		if !domain.IsBlockKind(tag) {
			if tag != "" {
				x.logger.Debug("passing through unrecognized fence", "tag", tag, "line", rng.StartLine)
			}
			chunks = append(chunks, Chunk{Segment: &domain.Unknown{Tag: tag, Text: raw, Range: rng}})
		} else {
			body := lines[i+1 : last+1]
			if closing >= 0 {
				body = lines[i+1 : closing]
			}
			chunks = append(chunks, Chunk{Fence: &Fence{
				Kind:         domain.BlockKind(tag),
				Info:         rest,
				Body:         body,
				Raw:          raw,
				Range:        rng,
				Unterminated: closing < 0,
			}})
		}

		i = last + 1
		prose = i
	}
	flushProse(len(lines))
	return chunks
}

// openFence recognizes an opening code fence: up to three spaces of
// indentation, then three or more backticks or tildes, then the info string.
func openFence(line string) (marker byte, width int, info string, ok bool) {
	indent := leadingSpaces(line)
	if indent > 3 {
		return 0, 0, "", false
	}
	s := line[indent:]
	if len(s) < 3 || (s[0] != '`' && s[0] != '~') {
		return 0, 0, "", false
	}
	marker = s[0]
	for width < len(s) && s[width] == marker {
		width++
	}
	if width < 3 {
		return 0, 0, "", false
	}
	info = strings.TrimSpace(s[width:])
	if marker == '`' && strings.ContainsRune(info, '`') {
		return 0, 0, "", false
	}
	return marker, width, info, true
}

func isCloseFence(line string, marker byte, width int) bool {
	indent := leadingSpaces(line)
	if indent > 3 {
		return false
	}
	s := line[indent:]
	n := 0
	for n < len(s) && s[n] == marker {
		n++
	}
	return n >= width && strings.TrimSpace(s[n:]) == ""
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

func splitInfo(info string) (tag, rest string) {
	fields := strings.Fields(info)
	if len(fields) == 0 {
		return "", ""
	}
	tag = strings.ToLower(fields[0])
	rest = strings.TrimSpace(strings.TrimPrefix(info, fields[0]))
	return tag, rest
}

func literalOf(lines []Line) *domain.Literal {
	return &domain.Literal{Text: joinFull(lines), Range: rangeOf(lines)}
}

func joinFull(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l.Full)
	}
	return sb.String()
}

func rangeOf(lines []Line) domain.SourceRange {
	if len(lines) == 0 {
		return domain.SourceRange{}
	}
	first, last := lines[0], lines[len(lines)-1]
	return domain.SourceRange{
		StartLine:   first.Number,
		EndLine:     last.Number,
		StartOffset: first.Offset,
		EndOffset:   last.end(),
	}
}
