package graph

import (
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/livemd/internal/validator"
	"github.com/aretw0/livemd/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the documents reachable
// from entry. It applies semantic styling:
// - Entry point: ((Circle))
// - Document with a form: [/Parallelogram/]
// - Default: [Rectangle]
// Missing documents and documents with parse errors get a warning class.
func GenerateMermaid(pages []validator.Page, entry string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	var missing, broken []string
	for _, page := range pages {
		safeID := sanitizeMermaidID(page.ID)

		opener, closer := "[", "]"
		switch {
		case page.ID == entry:
			opener, closer = "((", "))"
		case page.HasForm:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, page.ID, closer)

		switch {
		case page.Missing:
			missing = append(missing, safeID)
		case len(page.Errors) > 0:
			broken = append(broken, safeID)
		}

		for _, l := range page.Links {
			safeTo := sanitizeMermaidID(l.Target)

			// Links into another directory are drawn dotted.
			isJump := path.Dir(page.ID) != path.Dir(l.Target)

			arrow := "-->"
			if isJump {
				arrow = "-.->"
			}
			if label := labelText(l.Label); label != "" {
				label = strings.ReplaceAll(label, "\"", "'")
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				if isJump {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, safeTo)
		}
	}

	if len(missing) > 0 || len(broken) > 0 {
		sb.WriteString("\n    %% Problems\n")
		sb.WriteString("    classDef missing fill:#ffebee,stroke:#c62828,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef broken fill:#fff8e1,stroke:#f9a825,stroke-width:2px,color:#000;\n")
		for _, id := range missing {
			fmt.Fprintf(&sb, "    class %s missing;\n", id)
		}
		for _, id := range broken {
			fmt.Fprintf(&sb, "    class %s broken;\n", id)
		}
	}

	return sb.String()
}

// labelText spells a nav label the way it was written.
func labelText(t domain.Template) string {
	var sb strings.Builder
	for _, s := range t {
		if s.Ref != "" {
			sb.WriteString(s.Token)
			continue
		}
		sb.WriteString(s.Text)
	}
	return strings.TrimSpace(sb.String())
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
