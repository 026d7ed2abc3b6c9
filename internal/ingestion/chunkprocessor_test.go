package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BackoffMultiplier: 0.001, MaxBackoff: 5 * time.Millisecond}
}

func TestChunkProcessorSkipsWhenAlreadyIndexed(t *testing.T) {
	idx := newFakeIndexer()
	idx.records[indexerKey("kb-1", "hash-1")] = EmbeddingResult{ContentHash: "hash-1"}
	emb := &fakeEmbedder{}

	p := NewChunkProcessor(emb, idx, fastRetryPolicy(), slog.Default())
	outcome := p.Process(context.Background(), "kb-1", "job-1", Chunk{ContentHash: "hash-1"})

	assert.True(t, outcome.Skipped)
	assert.False(t, outcome.Success)
}

func TestChunkProcessorIndexesNewChunkAndStampsJobID(t *testing.T) {
	idx := newFakeIndexer()
	emb := &fakeEmbedder{}

	p := NewChunkProcessor(emb, idx, fastRetryPolicy(), slog.Default())
	outcome := p.Process(context.Background(), "kb-1", "job-1", Chunk{ContentHash: "hash-1", KBID: "kb-1"})

	require.True(t, outcome.Success)
	rec, ok := idx.records[indexerKey("kb-1", "hash-1")]
	require.True(t, ok)
	assert.Equal(t, "job-1", rec.Metadata["job_id"])
}

func TestChunkProcessorRetriesThenSucceeds(t *testing.T) {
	idx := newFakeIndexer()
	emb := &flakyEmbedder{failuresBeforeSuccess: 2}

	p := NewChunkProcessor(emb, idx, fastRetryPolicy(), slog.Default())
	outcome := p.Process(context.Background(), "kb-1", "job-1", Chunk{ContentHash: "hash-1"})

	assert.True(t, outcome.Success)
	assert.Equal(t, 3, emb.calls)
}

func TestChunkProcessorExhaustsRetriesAndReturnsError(t *testing.T) {
	idx := newFakeIndexer()
	emb := &fakeEmbedder{err: errors.New("embed service down")}

	p := NewChunkProcessor(emb, idx, fastRetryPolicy(), slog.Default())
	outcome := p.Process(context.Background(), "kb-1", "job-1", Chunk{ContentHash: "hash-1"})

	assert.False(t, outcome.Success)
	assert.False(t, outcome.Skipped)
	assert.Contains(t, outcome.Error, "embed service down")
}

func TestChunkProcessorStopsOnContextCancel(t *testing.T) {
	idx := newFakeIndexer()
	emb := &fakeEmbedder{err: errors.New("embed service down")}

	p := NewChunkProcessor(emb, idx, RetryPolicy{MaxAttempts: 100, BackoffMultiplier: 1000, MaxBackoff: time.Hour}, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	outcome := p.Process(ctx, "kb-1", "job-1", Chunk{ContentHash: "hash-1"})
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Error)
}

// flakyEmbedder fails a fixed number of times before succeeding.
type flakyEmbedder struct {
	failuresBeforeSuccess int
	calls                 int
}

func (f *flakyEmbedder) Embed(ctx context.Context, chunk Chunk) (EmbeddingResult, error) {
	f.calls++
	if f.calls <= f.failuresBeforeSuccess {
		return EmbeddingResult{}, errors.New("transient failure")
	}
	return EmbeddingResult{ContentHash: chunk.ContentHash}, nil
}
