// Package chunker adapts pkg/textsplitter into the ingestion.Chunker port.
package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/emergent-company/emergent/internal/ingestion"
	"github.com/emergent-company/emergent/pkg/textsplitter"
)

// TextSplitterChunker is the in-scope Chunker adapter, grounded on
// domain/chunking/service.go's use of pkg/textsplitter.
type TextSplitterChunker struct {
	cfg textsplitter.Config
}

// New builds a Chunker with the given split config, defaulting to
// textsplitter.DefaultConfig when cfg is the zero value.
func New(cfg textsplitter.Config) *TextSplitterChunker {
	if cfg.ChunkSize <= 0 {
		cfg = textsplitter.DefaultConfig()
	}
	return &TextSplitterChunker{cfg: cfg}
}

// Chunk splits every document's text and stamps each resulting chunk with a
// content hash over (kbID, docID, section text) so identical text in two
// different documents is not conflated as a duplicate.
func (c *TextSplitterChunker) Chunk(ctx context.Context, kbID string, docs []ingestion.Document) ([]ingestion.Chunk, error) {
	var chunks []ingestion.Chunk

	for _, doc := range docs {
		sections := textsplitter.Split(doc.Text, c.cfg)
		for i, section := range sections {
			chunks = append(chunks, ingestion.Chunk{
				ContentHash: contentHash(kbID, doc.ID, section),
				Text:        section,
				KBID:        kbID,
				DocID:       doc.ID,
				URL:         doc.URL(),
				Section:     strconv.Itoa(i),
			})
		}
	}

	return chunks, nil
}

func contentHash(kbID, docID, text string) string {
	h := sha256.New()
	h.Write([]byte(kbID))
	h.Write([]byte{0})
	h.Write([]byte(docID))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
