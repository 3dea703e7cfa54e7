// Package validator checks a document repository before it is served.
package validator

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aretw0/livemd/internal/compiler"
	"github.com/aretw0/livemd/pkg/domain"
	"github.com/aretw0/livemd/pkg/ports"
)

// Page is one document reached while following nav links.
type Page struct {
	ID      string
	Missing bool
	HasForm bool
	Links   []Link
	Errors  []*domain.ParseError
}

// Link is a nav choice pointing at another document.
type Link struct {
	Label  domain.Template
	Target string
}

// Crawl loads start and every document reachable through nav choices, in
// breadth-first order. Documents that fail to load are returned as Missing.
func Crawl(ctx context.Context, loader ports.DocumentLoader, parser *compiler.Parser, start string) ([]Page, error) {
	visited := make(map[string]bool)
	queue := []string{start}

	var pages []Page
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		doc, err := loader.Load(ctx, currentID)
		if err != nil {
			pages = append(pages, Page{ID: currentID, Missing: true})
			continue
		}

		page := Page{ID: currentID}
		segs := parser.Parse(doc.Content)
		page.Errors = compiler.Summarize(segs).Errors

		domain.Walk(segs, func(seg domain.Segment) {
			switch b := seg.(type) {
			case *domain.FormBlock:
				page.HasForm = true
			case *domain.NavBlock:
				for _, c := range b.Choices {
					target, ok := DocumentTarget(currentID, c.Target)
					if !ok {
						continue
					}
					page.Links = append(page.Links, Link{Label: c.Label, Target: target})
					if !visited[target] {
						queue = append(queue, target)
					}
				}
			}
		})
		pages = append(pages, page)
	}
	return pages, nil
}

// Validate crawls nav targets starting from start and reports documents that
// fail to load and blocks that fail to parse.
func Validate(ctx context.Context, loader ports.DocumentLoader, parser *compiler.Parser, start string) error {
	pages, err := Crawl(ctx, loader, parser, start)
	if err != nil {
		return err
	}

	var problems []string
	for _, p := range pages {
		if p.Missing {
			problems = append(problems, fmt.Sprintf("Missing document or load error: '%s'", p.ID))
			continue
		}
		for _, pe := range p.Errors {
			problems = append(problems, fmt.Sprintf("%s: %s", p.ID, pe.Error()))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(problems), strings.Join(problems, "\n- "))
	}
	return nil
}

// DocumentTarget resolves a nav target to a document ID relative to from.
// URLs and in-page anchors are not documents.
func DocumentTarget(from, target string) (string, bool) {
	if target == "" || strings.HasPrefix(target, "#") || strings.Contains(target, "://") || strings.HasPrefix(target, "mailto:") {
		return "", false
	}
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	target = strings.TrimSuffix(target, ".md")
	if !strings.HasPrefix(target, "/") {
		target = path.Join(path.Dir(from), target)
	}
	return strings.TrimPrefix(path.Clean(target), "/"), true
}
