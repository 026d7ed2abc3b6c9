package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/emergent-company/emergent/pkg/logger"
)

// ProcessOutcome is the categorized result of one chunk attempt (spec §4.6).
type ProcessOutcome struct {
	Success bool
	Skipped bool
	Error   string
}

// ChunkProcessor embeds and indexes one chunk with idempotency and retry.
type ChunkProcessor struct {
	embedder Embedder
	indexer  Indexer
	policy   RetryPolicy
	log      *slog.Logger
}

// NewChunkProcessor builds a ChunkProcessor bound to one job's embedder,
// indexer and retry policy.
func NewChunkProcessor(embedder Embedder, indexer Indexer, policy RetryPolicy, log *slog.Logger) *ChunkProcessor {
	return &ChunkProcessor{
		embedder: embedder,
		indexer:  indexer,
		policy:   policy,
		log:      log.With(logger.Scope("ingestion.chunkprocessor")),
	}
}

// Process runs the exists-check, then an embed+index attempt loop governed by
// the retry policy.
func (p *ChunkProcessor) Process(ctx context.Context, kbID, jobID string, chunk Chunk) ProcessOutcome {
	exists, err := p.indexer.Exists(ctx, kbID, chunk.ContentHash)
	if err != nil {
		p.log.Error("exists check failed", logger.Error(err), slog.String("contentHash", chunk.ContentHash))
	} else if exists {
		return ProcessOutcome{Skipped: true}
	}

	for attempt := 1; ; attempt++ {
		result, err := p.embedder.Embed(ctx, chunk)
		if err == nil {
			if result.Metadata == nil {
				result.Metadata = map[string]any{}
			}
			result.Metadata["job_id"] = jobID
			err = p.indexer.Index(ctx, kbID, result)
		}
		if err == nil {
			return ProcessOutcome{Success: true}
		}

		if !p.policy.ShouldRetry(attempt, err) {
			return ProcessOutcome{Error: err.Error()}
		}

		delay := p.policy.BackoffDelay(attempt)
		p.log.Debug("retrying chunk after failure",
			slog.String("contentHash", chunk.ContentHash),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			logger.Error(err))

		select {
		case <-ctx.Done():
			return ProcessOutcome{Error: ctx.Err().Error()}
		case <-time.After(delay):
		}
	}
}
