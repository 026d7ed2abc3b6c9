// Package embedder adapts pkg/embeddings.Client into the ingestion.Embedder
// port, adding per-job rate limiting and concurrency bounding.
package embedder

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/emergent-company/emergent/internal/ingestion"
	"github.com/emergent-company/emergent/pkg/embeddings"
)

// Embedder wraps an embeddings.Client with a per-job rate limiter and
// concurrency semaphore, grounded on domain/agents/ratelimit.go's
// rate.Limiter usage.
type Embedder struct {
	client      embeddings.Client
	limiter     *rate.Limiter
	concurrency *semaphore.Weighted
}

// New builds an Embedder bound to client, capped at ratePerSecond requests
// per second and maxConcurrent in-flight calls.
func New(client embeddings.Client, ratePerSecond float64, maxConcurrent int) *Embedder {
	if ratePerSecond <= 0 {
		ratePerSecond = 10
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Embedder{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1),
		concurrency: semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Embed waits for both the rate limiter and an open concurrency slot, then
// embeds the chunk's text as a single-document query.
func (e *Embedder) Embed(ctx context.Context, chunk ingestion.Chunk) (ingestion.EmbeddingResult, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return ingestion.EmbeddingResult{}, fmt.Errorf("embedder rate limit wait: %w", err)
	}
	if err := e.concurrency.Acquire(ctx, 1); err != nil {
		return ingestion.EmbeddingResult{}, fmt.Errorf("embedder concurrency acquire: %w", err)
	}
	defer e.concurrency.Release(1)

	vectors, err := e.client.EmbedDocuments(ctx, []string{chunk.Text})
	if err != nil {
		return ingestion.EmbeddingResult{}, fmt.Errorf("embed chunk %s: %w", chunk.ContentHash, err)
	}
	if len(vectors) == 0 {
		return ingestion.EmbeddingResult{}, fmt.Errorf("embedder returned no vectors for chunk %s", chunk.ContentHash)
	}

	return ingestion.EmbeddingResult{
		Vector:      vectors[0],
		ContentHash: chunk.ContentHash,
		Text:        chunk.Text,
		Metadata: map[string]any{
			"kb_id":   chunk.KBID,
			"doc_id":  chunk.DocID,
			"url":     chunk.URL,
			"section": chunk.Section,
		},
	}, nil
}
