package compiler

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/livemd/pkg/domain"
)

// Frontmatter decodes the YAML frontmatter of a parsed document, if any.
func Frontmatter(segs []domain.Segment) (map[string]any, error) {
	if len(segs) == 0 {
		return nil, nil
	}
	u, ok := segs[0].(*domain.Unknown)
	if !ok || u.Tag != FrontmatterTag {
		return nil, nil
	}

	lines := strings.Split(strings.TrimRight(u.Text, "\r\n"), "\n")
	if len(lines) < 2 {
		return nil, nil
	}
	body := strings.Join(lines[1:len(lines)-1], "\n")

	meta := make(map[string]any)
	if err := yaml.Unmarshal([]byte(body), &meta); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	return meta, nil
}
