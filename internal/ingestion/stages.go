package ingestion

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/emergent-company/emergent/pkg/logger"
)

// PipelineContext is the shared, per-run state stages mutate (spec §4.7).
// Stages must be idempotent at the batch boundary: safe to re-execute after a
// crash if the checkpoint did not advance.
type PipelineContext struct {
	KBID       string
	JobID      uuid.UUID
	BatchID    int
	Checkpoint *Checkpoint
	Counters   *Counters

	Components Components
	Store      Store
	Gate       *Gate
	Shutdown   *ShutdownManager
	Processor  *ChunkProcessor
	Layout     Layout

	chunkingStarted bool

	log *slog.Logger
}

// StageResult reports whether the Coordinator should keep advancing through
// the remaining stages / batches.
type StageResult struct {
	Continue bool
}

// LoadingStage persists each document in the batch to the per-KB documents/
// folder, increments docs_seen, and updates the loading phase row.
func (pc *PipelineContext) LoadingStage(ctx context.Context, docs []Document) StageResult {
	pc.Store.StartPhase(ctx, pc.JobID, PhaseLoading, nil)

	for i, doc := range docs {
		docID := doc.DocID()
		if docID < 0 {
			docID = pc.BatchID*1000 + i
		}
		pageName := doc.ID
		if err := pc.Layout.SaveDocument(docID, pageName, doc.URL(), doc.Text); err != nil {
			pc.log.Error("failed to persist document to disk", logger.Error(err), slog.String("docId", doc.ID))
		}
	}

	pc.Counters.DocsSeen += int64(len(docs))
	pc.Store.UpdatePhaseProgress(ctx, pc.JobID, PhaseLoading, pc.Counters.DocsSeen, 0)

	return StageResult{Continue: true}
}

// ChunkingStage passes the batch to the configured Chunker, producing a flat
// list of Chunks, and increments chunks_seen.
func (pc *PipelineContext) ChunkingStage(ctx context.Context, docs []Document) ([]Chunk, StageResult) {
	if !pc.chunkingStarted {
		pc.Store.StartPhase(ctx, pc.JobID, PhaseChunking, nil)
		pc.chunkingStarted = true
	}

	chunks, err := pc.Components.Chunker.Chunk(ctx, pc.KBID, docs)
	if err != nil {
		pc.log.Error("chunking failed", logger.Error(err))
		pc.Store.FailPhase(ctx, pc.JobID, PhaseChunking, err.Error())
		return nil, StageResult{Continue: false}
	}

	pc.Counters.ChunksSeen += int64(len(chunks))
	pc.Store.UpdatePhaseProgress(ctx, pc.JobID, PhaseChunking, pc.Counters.ChunksSeen, 0)

	return chunks, StageResult{Continue: true}
}

// EmbeddingIndexingStage processes each chunk in insertion order, checking
// for shutdown/cancellation before every single chunk (the stricter
// chunk-boundary cancellation path, see DESIGN.md).
func (pc *PipelineContext) EmbeddingIndexingStage(ctx context.Context, chunks []Chunk) StageResult {
	pc.Store.StartPhase(ctx, pc.JobID, PhaseEmbedding, nil)
	pc.Store.StartPhase(ctx, pc.JobID, PhaseIndexing, nil)

	for _, chunk := range chunks {
		if pc.Shutdown.IsShutdownRequested(pc.JobID.String()) {
			pc.rewindCheckpoint(ctx)
			if err := pc.Store.SetJobStatus(ctx, pc.JobID, StatusPaused, nil, ""); err != nil {
				pc.log.Error("failed to mark job paused on shutdown", logger.Error(err))
			}
			return StageResult{Continue: false}
		}

		if !pc.Gate.Check(ctx, pc.JobID, pc.KBID, pc.Components.Indexer) {
			pc.rewindCheckpoint(ctx)
			return StageResult{Continue: false}
		}

		outcome := pc.Processor.Process(ctx, pc.KBID, pc.JobID.String(), chunk)
		switch {
		case outcome.Skipped:
			pc.Counters.ChunksSkipped++
		case outcome.Success:
			pc.Counters.ChunksProcessed++
		default:
			pc.Counters.ChunksError++
			pc.log.Warn("chunk processing failed",
				slog.String("contentHash", chunk.ContentHash),
				slog.String("error", outcome.Error))
		}
	}

	pc.Store.UpdatePhaseProgress(ctx, pc.JobID, PhaseEmbedding, pc.Counters.ChunksProcessed+pc.Counters.ChunksSkipped+pc.Counters.ChunksError, 0)
	pc.Store.UpdatePhaseProgress(ctx, pc.JobID, PhaseIndexing, pc.Counters.ChunksProcessed, 0)

	return StageResult{Continue: true}
}

// rewindCheckpoint moves last_batch_id back by one so the interrupted batch
// is re-processed in full on resume; the Indexer's content-hash dedup absorbs
// the already-completed chunks in that batch.
func (pc *PipelineContext) rewindCheckpoint(ctx context.Context) {
	pc.Checkpoint.LastBatchID = pc.BatchID - 1
	if err := pc.Store.UpdateJob(ctx, pc.JobID, pc.Checkpoint, pc.Counters); err != nil {
		pc.log.Error("failed to persist rewound checkpoint", logger.Error(err))
	}
}
