package ingestion

import (
	"context"
	"fmt"
	"sync"
)

// fakeIndexer is an in-memory Indexer used across this package's tests.
type fakeIndexer struct {
	mu           sync.Mutex
	records      map[string]EmbeddingResult // keyed by kbID+"/"+contentHash
	persisted    map[string]bool
	deletedJobs  []string
	indexErr     error
	existsErr    error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{
		records:   make(map[string]EmbeddingResult),
		persisted: make(map[string]bool),
	}
}

func indexerKey(kbID, contentHash string) string {
	return kbID + "/" + contentHash
}

func (f *fakeIndexer) Exists(ctx context.Context, kbID, contentHash string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[indexerKey(kbID, contentHash)]
	return ok, nil
}

func (f *fakeIndexer) Index(ctx context.Context, kbID string, result EmbeddingResult) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[indexerKey(kbID, result.ContentHash)] = result
	return nil
}

func (f *fakeIndexer) Persist(ctx context.Context, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted[kbID] = true
	return nil
}

func (f *fakeIndexer) DeleteByJob(ctx context.Context, jobID, kbID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedJobs = append(f.deletedJobs, jobID)
	for k, v := range f.records {
		if v.Metadata["job_id"] == jobID && v.Metadata["kb_id"] == kbID {
			delete(f.records, k)
		}
	}
	return nil
}

var _ Indexer = (*fakeIndexer)(nil)

// fakeLoader yields a fixed sequence of batches, one per Next call, then
// reports exhaustion.
type fakeLoader struct {
	batches []Batch
	err     error
	calls   int
}

func (f *fakeLoader) Next(ctx context.Context, lastBatchID int) (Batch, bool, error) {
	f.calls++
	if f.err != nil {
		return Batch{}, false, f.err
	}
	for _, b := range f.batches {
		if b.ID > lastBatchID {
			return b, true, nil
		}
	}
	return Batch{}, false, nil
}

// fakeChunker splits each document into a single chunk whose content hash is
// just its document ID, for deterministic test assertions.
type fakeChunker struct{}

func (fakeChunker) Chunk(ctx context.Context, kbID string, docs []Document) ([]Chunk, error) {
	chunks := make([]Chunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, Chunk{
			ContentHash: fmt.Sprintf("hash-%s-%s", kbID, d.ID),
			Text:        d.Text,
			KBID:        kbID,
			DocID:       d.ID,
			URL:         d.URL(),
		})
	}
	return chunks, nil
}

// fakeEmbedder returns a fixed-size zero vector for every chunk, or an error
// if set.
type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, chunk Chunk) (EmbeddingResult, error) {
	if f.err != nil {
		return EmbeddingResult{}, f.err
	}
	return EmbeddingResult{
		Vector:      []float32{0, 0, 0},
		ContentHash: chunk.ContentHash,
		Text:        chunk.Text,
		Metadata: map[string]any{
			"kb_id": chunk.KBID,
			"doc_id": chunk.DocID,
		},
	}, nil
}
