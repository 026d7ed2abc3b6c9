// Package loader provides the filesystem-tree Loader adapter: the one
// concrete, in-scope source for the ingestion pipeline (spec §1's scope note
// that the HTML/sitemap/transcript loaders are named but not implemented
// here, left as pluggable Loader capabilities).
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emergent-company/emergent/internal/ingestion"
)

// FSLoader walks a directory tree once at construction time and yields its
// files in lexical order, batchSize documents per batch.
type FSLoader struct {
	root      string
	batchSize int
	files     []string
}

// New builds an FSLoader rooted at root. It walks the tree eagerly so Next
// calls are cheap and purely index arithmetic; root trees large enough for
// this to matter are out of scope (spec §1's Non-goals).
func New(root string, batchSize int) (*FSLoader, error) {
	if batchSize <= 0 {
		batchSize = 20
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk ingestion source tree %s: %w", root, err)
	}
	sort.Strings(files)

	return &FSLoader{root: root, batchSize: batchSize, files: files}, nil
}

// Next returns the batch immediately after lastBatchID, reading each file's
// contents on demand.
func (l *FSLoader) Next(ctx context.Context, lastBatchID int) (ingestion.Batch, bool, error) {
	nextID := lastBatchID + 1
	start := nextID * l.batchSize
	if start >= len(l.files) {
		return ingestion.Batch{}, false, nil
	}
	end := start + l.batchSize
	if end > len(l.files) {
		end = len(l.files)
	}

	docs := make([]ingestion.Document, 0, end-start)
	for _, path := range l.files[start:end] {
		select {
		case <-ctx.Done():
			return ingestion.Batch{}, false, ctx.Err()
		default:
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return ingestion.Batch{}, false, fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil {
			rel = path
		}

		docs = append(docs, ingestion.Document{
			ID:   strings.ReplaceAll(rel, string(filepath.Separator), "/"),
			Text: string(content),
			Metadata: map[string]any{
				"url": "file://" + path,
			},
		})
	}

	return ingestion.Batch{ID: nextID, Documents: docs}, true, nil
}
