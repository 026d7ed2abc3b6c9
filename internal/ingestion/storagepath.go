package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Layout resolves the on-disk persisted-state paths for one KB (spec §6
// "Persisted state layout"): a documents/ folder of input snapshots, an
// index/ folder of vector-store artifacts, and an indexReadyMarker file whose
// presence signals the index is ready.
type Layout struct {
	root string
}

// NewLayout roots a KB's persisted state under dataDir/kbID.
func NewLayout(dataDir, kbID string) Layout {
	return Layout{root: filepath.Join(dataDir, kbID)}
}

func (l Layout) Root() string { return l.root }

func (l Layout) DocumentsDir() string { return filepath.Join(l.root, "documents") }

func (l Layout) IndexDir() string { return filepath.Join(l.root, "index") }

// indexReadyMarker is the known artifact file whose presence signals the
// index is ready on disk, per spec §6.
const indexReadyMarker = "ready.marker"

// IndexReady reports whether the KB's index directory contains the ready
// marker.
func (l Layout) IndexReady() bool {
	_, err := os.Stat(filepath.Join(l.IndexDir(), indexReadyMarker))
	return err == nil
}

// MarkIndexReady writes the ready marker after a successful persist.
func (l Layout) MarkIndexReady() error {
	if err := os.MkdirAll(l.IndexDir(), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.IndexDir(), indexReadyMarker), []byte("ok"), 0o644)
}

// DeleteIndex removes the KB's index directory entirely (the cancel path's
// destructive cleanup target).
func (l Layout) DeleteIndex() error {
	return os.RemoveAll(l.IndexDir())
}

var sanitizeRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizePageName mirrors the original storage.py naming rule: replace any
// run of characters outside [a-zA-Z0-9._-] with a single underscore, and trim
// to a reasonable filename length.
func sanitizePageName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "untitled"
	}
	name = sanitizeRe.ReplaceAllString(name, "_")
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}

// SaveDocument persists one document to documents/{doc_id:04d}_{name}.md with
// a short header naming the doc_id and source URL, grounded on the Python
// save_documents_to_disk helper.
func (l Layout) SaveDocument(docID int, pageName, url, text string) error {
	if err := os.MkdirAll(l.DocumentsDir(), 0o755); err != nil {
		return err
	}

	filename := fmt.Sprintf("%04d_%s.md", docID, sanitizePageName(pageName))
	header := fmt.Sprintf("# Doc ID: %d\n# URL: %s\n\n", docID, url)

	return os.WriteFile(filepath.Join(l.DocumentsDir(), filename), []byte(header+text), 0o644)
}
