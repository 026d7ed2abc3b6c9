package ingestion

import "context"

// Document is a single unit yielded by the Loader: raw text plus enough
// metadata to route it to the right KB and reconstruct provenance.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// DocID returns the document's numeric ordinal within its batch sequence if
// present in metadata, or -1 if absent.
func (d Document) DocID() int {
	if v, ok := d.Metadata["doc_id"].(int); ok {
		return v
	}
	return -1
}

func (d Document) URL() string {
	if v, ok := d.Metadata["url"].(string); ok {
		return v
	}
	return ""
}

// Chunk is a sub-document unit of embedding/indexing, the unit of dedup.
type Chunk struct {
	ContentHash string
	Text        string
	KBID        string
	DocID       string
	URL         string
	Section     string
}

// EmbeddingResult is produced by the Embedder and consumed by the Indexer.
type EmbeddingResult struct {
	Vector      []float32
	ContentHash string
	Text        string
	Metadata    map[string]any
}

// Batch is a group of documents yielded together by the Loader; the unit of
// checkpointing.
type Batch struct {
	ID        int
	Documents []Document
}

// Loader is the capability port for source-specific fetchers (HTML crawler,
// sitemap parser, transcript readers, filesystem trees, ...). A Loader must
// honor the checkpoint's last_batch_id to resume mid-source when possible; if
// it cannot, it may restart from the beginning since the Indexer's idempotency
// absorbs the overlap.
type Loader interface {
	// Next returns the next batch after lastBatchID, or ok=false when the
	// source is exhausted.
	Next(ctx context.Context, lastBatchID int) (batch Batch, ok bool, err error)
}

// Chunker is the capability port that splits a batch of Documents into Chunks
// with stable content hashes.
type Chunker interface {
	Chunk(ctx context.Context, kbID string, docs []Document) ([]Chunk, error)
}

// Embedder is the capability port that turns a Chunk into an embedding
// vector. Failures are returned as errors; the Chunk Processor decides on
// retry via the Retry Policy.
type Embedder interface {
	Embed(ctx context.Context, chunk Chunk) (EmbeddingResult, error)
}

// Indexer is the capability port for the vector store. It is idempotent on
// ContentHash: re-indexing the same hash is a no-op observable via Exists.
type Indexer interface {
	Exists(ctx context.Context, kbID, contentHash string) (bool, error)
	Index(ctx context.Context, kbID string, result EmbeddingResult) error
	Persist(ctx context.Context, kbID string) error
	DeleteByJob(ctx context.Context, jobID, kbID string) error
}

// Components bundles the four capability ports a Coordinator run needs,
// constructed per-job from the KB's descriptor.
type Components struct {
	Loader   Loader
	Chunker  Chunker
	Embedder Embedder
	Indexer  Indexer
}
