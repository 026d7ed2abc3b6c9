package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emergent-company/emergent/internal/ingestion/metrics"
	"github.com/emergent-company/emergent/pkg/logger"
)

var tracer = otel.Tracer("ingestion.coordinator")

// fatalNoDocuments is the exact terminal message used when a run's loader
// never yielded any work at all (spec §4.8).
const fatalNoDocuments = "No documents were loaded from the configured source"

// Coordinator drives the per-job stage loop, checkpoints, and terminal
// transitions (spec §4.8). It is the sole writer of checkpoint.last_batch_id
// during a run.
type Coordinator struct {
	store    Store
	gate     *Gate
	shutdown *ShutdownManager
	layout   func(kbID string) Layout
	policy   RetryPolicy
	log      *slog.Logger
}

// NewCoordinator builds a Coordinator bound to one job's capability ports.
// layout constructs the per-KB persisted-state Layout on demand.
func NewCoordinator(store Store, gate *Gate, shutdown *ShutdownManager, layout func(kbID string) Layout, policy RetryPolicy, log *slog.Logger) *Coordinator {
	return &Coordinator{
		store:    store,
		gate:     gate,
		shutdown: shutdown,
		layout:   layout,
		policy:   policy,
		log:      log.With(logger.Scope("ingestion.coordinator")),
	}
}

// Run executes the coordinator loop for one job until the loader is
// exhausted, the job is paused/canceled, or a fatal error terminates it.
func (c *Coordinator) Run(ctx context.Context, job *Job, components Components) {
	jobID := job.ID
	kbID := job.KBID

	ctx, span := tracer.Start(ctx, "ingestion.job",
		trace.WithAttributes(attribute.String("kb_id", kbID), attribute.String("job_id", jobID.String())))
	defer span.End()

	metrics.JobsRunning.Inc()
	defer metrics.JobsRunning.Dec()

	checkpoint := job.Checkpoint
	counters := job.Counters

	processor := NewChunkProcessor(components.Embedder, components.Indexer, c.policy, c.log)

	pc := &PipelineContext{
		KBID:       kbID,
		JobID:      jobID,
		Components: components,
		Store:      c.store,
		Gate:       c.gate,
		Shutdown:   c.shutdown,
		Processor:  processor,
		Layout:     c.layout(kbID),
		log:        c.log,
	}

	for {
		if c.shutdown.IsShutdownRequested(jobID.String()) {
			c.pause(ctx, jobID, checkpoint, counters)
			return
		}

		if !c.gate.Check(ctx, jobID, kbID, components.Indexer) {
			return
		}

		batch, ok, err := c.pullBatch(ctx, components.Loader, checkpoint.LastBatchID)
		if err != nil {
			c.log.Error("loader failed", logger.Error(err), slog.Int("lastBatchId", checkpoint.LastBatchID))
			c.store.FailPhase(ctx, jobID, PhaseLoading, err.Error())
			c.fail(ctx, jobID, "loader error: "+err.Error())
			return
		}
		if !ok {
			c.finalize(ctx, jobID, counters)
			return
		}

		batchCtx, batchSpan := tracer.Start(ctx, "ingestion.batch", trace.WithAttributes(attribute.Int("batch_id", batch.ID)))
		batchStart := time.Now()

		pc.BatchID = batch.ID
		pc.Checkpoint = &checkpoint
		pc.Counters = &counters

		if res := pc.LoadingStage(batchCtx, batch.Documents); !res.Continue {
			batchSpan.End()
			return
		}

		chunks, res := pc.ChunkingStage(batchCtx, batch.Documents)
		if !res.Continue {
			batchSpan.End()
			return
		}

		if res := pc.EmbeddingIndexingStage(batchCtx, chunks); !res.Continue {
			batchSpan.End()
			return
		}

		if err := components.Indexer.Persist(batchCtx, kbID); err != nil {
			c.log.Error("indexer persist failed, checkpoint will not advance", logger.Error(err), slog.Int("batchId", batch.ID))
			batchSpan.End()
			return
		}

		checkpoint.LastBatchID = batch.ID
		if err := c.store.UpdateJob(ctx, jobID, &checkpoint, &counters); err != nil {
			c.log.Error("failed to persist checkpoint", logger.Error(err))
		}
		if err := c.store.UpdateHeartbeat(ctx, jobID); err != nil {
			c.log.Error("failed to update heartbeat", logger.Error(err))
		}

		metrics.BatchDuration.Observe(time.Since(batchStart).Seconds())
		metrics.ChunksProcessed.WithLabelValues("processed").Add(float64(counters.ChunksProcessed))
		batchSpan.End()
	}
}

// pullBatch offloads the synchronous Loader call so it never blocks the
// coordinator's own cancellation checks (spec §5's worker-thread-pool model).
func (c *Coordinator) pullBatch(ctx context.Context, loader Loader, lastBatchID int) (Batch, bool, error) {
	type result struct {
		batch Batch
		ok    bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		batch, ok, err := loader.Next(ctx, lastBatchID)
		done <- result{batch, ok, err}
	}()

	select {
	case <-ctx.Done():
		return Batch{}, false, ctx.Err()
	case r := <-done:
		return r.batch, r.ok, r.err
	}
}

// pause persists the checkpoint/counters and marks the job paused on
// shutdown request, matching the Gate's own transition table.
func (c *Coordinator) pause(ctx context.Context, jobID uuid.UUID, checkpoint Checkpoint, counters Counters) {
	if err := c.store.UpdateJob(ctx, jobID, &checkpoint, &counters); err != nil {
		c.log.Error("failed to persist checkpoint before pause", logger.Error(err))
	}
	if err := c.store.SetJobStatus(ctx, jobID, StatusPaused, nil, ""); err != nil {
		c.log.Error("failed to mark job paused on shutdown", logger.Error(err))
	}
}

// fail transitions the job to failed with the given message, matching spec
// §4.8's terminal-failure path.
func (c *Coordinator) fail(ctx context.Context, jobID uuid.UUID, msg string) {
	now := time.Now()
	if err := c.store.SetJobStatus(ctx, jobID, StatusFailed, &now, msg); err != nil {
		c.log.Error("failed to mark job failed", logger.Error(err))
	}
	metrics.JobsFinished.WithLabelValues(string(StatusFailed)).Inc()
}

// finalize runs when the Loader reports exhaustion: a run that loaded zero
// documents and indexed nothing is itself a failure (spec §4.8's "fail with
// zero work" rule); otherwise every started phase is completed and the job
// transitions to completed.
func (c *Coordinator) finalize(ctx context.Context, jobID uuid.UUID, counters Counters) {
	if counters.HasNoWork() {
		c.fail(ctx, jobID, fatalNoDocuments)
		return
	}

	statuses, err := c.store.GetAllPhaseStatuses(ctx, jobID)
	if err != nil {
		c.log.Error("failed to read phase statuses before finalizing", logger.Error(err))
	}
	for _, phase := range CanonicalPhases {
		if row, ok := statuses[phase]; ok && row.Status == PhaseStatusNotStarted {
			continue
		}
		c.store.CompletePhase(ctx, jobID, phase)
	}

	now := time.Now()
	if err := c.store.SetJobStatus(ctx, jobID, StatusCompleted, &now, ""); err != nil {
		c.log.Error("failed to mark job completed", logger.Error(err))
	}
	metrics.JobsFinished.WithLabelValues(string(StatusCompleted)).Inc()
}
