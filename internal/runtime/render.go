package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/livemd/internal/interpolate"
	"github.com/aretw0/livemd/pkg/domain"
)

// Annotation renders an inline error marker for a block error.
func Annotation(e *domain.BlockError) string {
	return fmt.Sprintf("> **error** (%s, %s): %s\n", e.BlockID, e.Range, e.Message)
}

// SkippedAnnotation renders the marker left in place of a block the guard
// did not run.
func SkippedAnnotation(meta domain.BlockMeta) string {
	return fmt.Sprintf("> **skipped: timeout** (%s, %s)\n", meta.ID, meta.Range)
}

func renderPanel(b *domain.PanelBlock, lookup interpolate.Lookup) string {
	var sb strings.Builder
	if len(b.Title) > 0 {
		sb.WriteString("**")
		sb.WriteString(interpolate.Render(b.Title, lookup))
		sb.WriteString("**\n")
		if len(b.Body) > 0 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(interpolate.Render(b.Body, lookup))
	return sb.String()
}

func renderNav(b *domain.NavBlock, lookup interpolate.Lookup) (string, []domain.NavChoiceView) {
	var sb strings.Builder
	views := make([]domain.NavChoiceView, 0, len(b.Choices))
	for _, c := range b.Choices {
		label := c.Target
		if len(c.Label) > 0 {
			label = interpolate.Render(c.Label, lookup)
		}
		views = append(views, domain.NavChoiceView{Target: c.Target, Label: label})
		fmt.Fprintf(&sb, "- [%s](%s)\n", label, c.Target)
	}
	return sb.String(), views
}

// writeBlock appends rendered block text and its annotations to out.
func writeBlock(out *strings.Builder, text string, errs []*domain.BlockError) {
	if text != "" {
		out.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			out.WriteString("\n")
		}
	}
	for _, e := range errs {
		out.WriteString(Annotation(e))
	}
}
