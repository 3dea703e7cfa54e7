package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/livemd/pkg/domain"
)

// Pattern selects the documents a Loader serves and watches.
const Pattern = "**/*.md"

// Loader adapts a Loam repository to ports.DocumentLoader.
type Loader struct {
	Repo *loam.TypedRepository[DocumentMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DocumentMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only, strict Loam repository rooted at dir.
func Open(dir string) (*Loader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	repo, err := loam.Init(abs, loam.WithStrict(true), loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to init loam repository: %w", err)
	}
	return New(loam.NewTypedRepository[DocumentMetadata](repo)), nil
}

// Load retrieves a document and its frontmatter.
// Loam resolves "intro" to intro.md.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: loam get failed for %s: %w", domain.ErrDocumentNotFound, id, err)
	}

	meta, err := metaMap(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frontmatter of %s: %w", id, err)
	}

	docID := doc.Data.ID
	if docID == "" {
		docID = id
	}
	return &domain.Document{
		ID:      trimExtension(docID),
		Content: doc.Content,
		Meta:    meta,
	}, nil
}

// metaMap flattens the typed frontmatter back into a plain map so that the
// runtime can read overrides with config.FromMap.
func metaMap(meta DocumentMetadata) (map[string]any, error) {
	out := make(map[string]any)
	if err := mapstructure.Decode(meta, &out); err != nil {
		return nil, err
	}
	for k, v := range meta.Extra {
		if _, taken := out[k]; !taken {
			out[k] = v
		}
	}
	delete(out, "Extra")
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// List lists the Markdown documents of the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		if filepath.Ext(doc.ID) != "" && filepath.Ext(doc.ID) != ".md" {
			continue
		}
		// Use the ID from metadata if available, otherwise filename ID
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces bursts of writes itself.
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
