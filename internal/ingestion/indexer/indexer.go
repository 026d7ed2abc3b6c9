// Package indexer is the pgvector-backed ingestion.Indexer adapter, keyed on
// content_hash rather than a synthetic chunk id so re-indexing identical
// content is a no-op (spec §3's Indexed Record, §4.6's idempotency contract).
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/internal/ingestion"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Record is the durable row behind one indexed chunk, grounded on
// domain/chunks/entity.go's bun model shape but keyed by content_hash.
type Record struct {
	bun.BaseModel `bun:"table:kb.ingestion_chunks,alias:ic"`

	ContentHash string         `bun:"content_hash,pk" json:"contentHash"`
	KBID        string         `bun:"kb_id,pk" json:"kbId"`
	JobID       string         `bun:"job_id,notnull" json:"jobId"`
	Text        string         `bun:"text,notnull" json:"text"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull,default:'{}'::jsonb" json:"metadata"`
	CreatedAt   time.Time      `bun:"created_at,notnull,default:now()" json:"createdAt"`
}

// PgvectorIndexer is the Postgres + pgvector backed Indexer.
type PgvectorIndexer struct {
	db   bun.IDB
	path indexPathFn
	log  *slog.Logger
}

// indexPathFn resolves the on-disk index directory for a KB, used to mark
// the persisted-state layout ready once a batch has been fully persisted.
type indexPathFn func(kbID string) ingestion.Layout

// New builds a PgvectorIndexer. layout resolves the per-KB on-disk Layout so
// Persist can drop the ready marker.
func New(db bun.IDB, layout func(kbID string) ingestion.Layout, log *slog.Logger) *PgvectorIndexer {
	return &PgvectorIndexer{db: db, path: layout, log: log.With(logger.Scope("ingestion.indexer"))}
}

// Exists reports whether a record with this content hash already exists for
// kbID, the idempotency check the Chunk Processor runs before embedding.
func (ix *PgvectorIndexer) Exists(ctx context.Context, kbID, contentHash string) (bool, error) {
	count, err := ix.db.NewSelect().
		Model((*Record)(nil)).
		Where("kb_id = ?", kbID).
		Where("content_hash = ?", contentHash).
		Count(ctx)
	if err != nil {
		return false, apperror.NewInternal("failed to check indexed chunk existence", err)
	}
	return count > 0, nil
}

// Index upserts the embedding result by (kb_id, content_hash), grounded on
// domain/chunks/repository.go's floatsToVectorLiteral + raw-SQL vector update
// pattern.
func (ix *PgvectorIndexer) Index(ctx context.Context, kbID string, result ingestion.EmbeddingResult) error {
	metadata := result.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	jobID, _ := metadata["job_id"].(string)

	vecLiteral := floatsToVectorLiteral(result.Vector)

	_, err := ix.db.NewRaw(`
		INSERT INTO kb.ingestion_chunks (content_hash, kb_id, job_id, text, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?::vector, now())
		ON CONFLICT (content_hash, kb_id) DO UPDATE SET
			text = EXCLUDED.text,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`,
		result.ContentHash, kbID, jobID, result.Text, metadata, vecLiteral,
	).Exec(ctx)
	if err != nil {
		return apperror.NewInternal("failed to index chunk", err)
	}
	return nil
}

// Persist marks the KB's on-disk index directory ready. There is no
// additional flush step for pgvector itself; the marker lets the Composed
// Status View and other readers treat the index as durably available.
func (ix *PgvectorIndexer) Persist(ctx context.Context, kbID string) error {
	return ix.path(kbID).MarkIndexReady()
}

// DeleteByJob removes every record this job indexed for kbID and clears the
// on-disk index directory, the cancel path's destructive cleanup (spec §4.5).
func (ix *PgvectorIndexer) DeleteByJob(ctx context.Context, jobID, kbID string) error {
	_, err := ix.db.NewDelete().
		Model((*Record)(nil)).
		Where("kb_id = ?", kbID).
		Where("job_id = ?", jobID).
		Exec(ctx)
	if err != nil {
		return apperror.NewInternal("failed to delete indexed chunks by job", err)
	}
	if err := ix.path(kbID).DeleteIndex(); err != nil {
		return apperror.NewInternal("failed to delete on-disk index directory", err)
	}
	return nil
}

func floatsToVectorLiteral(vec []float32) string {
	if len(vec) == 0 {
		return "[]"
	}
	result := "["
	for i, v := range vec {
		if i > 0 {
			result += ","
		}
		result += fmt.Sprintf("%g", v)
	}
	result += "]"
	return result
}
