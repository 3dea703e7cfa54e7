package tui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/livemd/pkg/domain"
)

// ErrAborted is returned when the input ends before a form is complete.
var ErrAborted = errors.New("form aborted")

// Prompter collects form answers line by line.
type Prompter struct {
	in      *bufio.Reader
	out     io.Writer
	fd      int
	profile termenv.Profile
}

// NewPrompter reads answers from in and writes prompts to out.
// Password fields are read without echo when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	fd := -1
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd = int(f.Fd())
	}
	return &Prompter{
		in:      bufio.NewReader(in),
		out:     out,
		fd:      fd,
		profile: termenv.EnvColorProfile(),
	}
}

// Ask prompts for every field of form and returns the typed answers.
// Optional fields left blank are omitted. Invalid input is asked again.
func (p *Prompter) Ask(form domain.FormDefinition) (map[string]any, error) {
	if form.Title != "" {
		fmt.Fprintln(p.out, termenv.String(form.Title).Bold().Foreground(p.profile.Color("#a78bfa")))
	}
	answers := make(map[string]any, len(form.Fields))
	for _, fs := range form.Fields {
		v, ok, err := p.askField(fs)
		if err != nil {
			return nil, err
		}
		if ok {
			answers[fs.Name] = v
		}
	}
	return answers, nil
}

func (p *Prompter) askField(fs domain.FieldSpec) (any, bool, error) {
	label := fs.Label
	if label == "" {
		label = fs.Name
	}
	for i, opt := range fs.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}

	for {
		fmt.Fprint(p.out, prompt(label, fs))
		line, err := p.readLine(fs.Type == domain.FieldPassword)
		if err != nil {
			return nil, false, err
		}
		if line == "" {
			if fs.Required {
				p.warn("a value is required")
				continue
			}
			return nil, false, nil
		}

		v, err := Coerce(fs, line)
		if err != nil {
			p.warn(err.Error())
			continue
		}
		return v, true, nil
	}
}

func prompt(label string, fs domain.FieldSpec) string {
	var hint string
	switch fs.Type {
	case domain.FieldCheckbox:
		hint = " [y/n]"
	case domain.FieldDate:
		hint = " (YYYY-MM-DD)"
	}
	mark := ""
	if fs.Required {
		mark = "*"
	}
	return fmt.Sprintf("%s%s%s: ", label, mark, hint)
}

func (p *Prompter) readLine(secret bool) (string, error) {
	if secret && p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrAborted, err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return strings.TrimSpace(line), nil
}

func (p *Prompter) warn(msg string) {
	fmt.Fprintln(p.out, termenv.String("  ! "+msg).Foreground(p.profile.Color("#fb7185")))
}

// Coerce converts raw input to the Go value a field of type fs.Type carries.
func Coerce(fs domain.FieldSpec, raw string) (any, error) {
	switch fs.Type {
	case domain.FieldCheckbox:
		switch strings.ToLower(raw) {
		case "y", "yes", "true", "1", "on":
			return true, nil
		case "n", "no", "false", "0", "off":
			return false, nil
		}
		return nil, fmt.Errorf("answer yes or no")
	case domain.FieldNumber:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		if fs.Min != nil && n < *fs.Min {
			return nil, fmt.Errorf("must be at least %s", domain.FormatNumber(*fs.Min))
		}
		if fs.Max != nil && n > *fs.Max {
			return nil, fmt.Errorf("must be at most %s", domain.FormatNumber(*fs.Max))
		}
		return n, nil
	case domain.FieldSelect, domain.FieldRadio:
		if len(fs.Options) == 0 {
			return raw, nil
		}
		if i, err := strconv.Atoi(raw); err == nil && i >= 1 && i <= len(fs.Options) {
			return fs.Options[i-1], nil
		}
		for _, opt := range fs.Options {
			if strings.EqualFold(opt, raw) {
				return opt, nil
			}
		}
		return nil, fmt.Errorf("choose one of %s", strings.Join(fs.Options, ", "))
	default:
		return raw, nil
	}
}
