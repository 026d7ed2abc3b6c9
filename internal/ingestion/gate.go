package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/emergent/pkg/logger"
)

// Gate observes desired state and gates pipeline progress between batches
// (spec §4.5). It is the only place cancellation side effects happen.
type Gate struct {
	store    Store
	interval time.Duration
	log      *slog.Logger
}

// NewGate builds a Gate that polls every interval while a job is paused.
func NewGate(store Store, interval time.Duration, log *slog.Logger) *Gate {
	if interval <= 0 {
		interval = time.Second
	}
	return &Gate{store: store, interval: interval, log: log.With(logger.Scope("ingestion.gate"))}
}

// Check returns true if the Coordinator should proceed with the next unit of
// work. It blocks (polling) while paused, and performs destructive cleanup
// when the job has been canceled.
func (g *Gate) Check(ctx context.Context, jobID uuid.UUID, kbID string, indexer Indexer) bool {
	for {
		status, err := g.store.GetJobStatus(ctx, jobID)
		if err != nil {
			g.log.Error("gate failed to read job status", logger.Error(err), slog.String("jobId", jobID.String()))
			return false
		}

		switch status {
		case StatusRunning:
			return true

		case StatusPaused:
			select {
			case <-ctx.Done():
				return false
			case <-time.After(g.interval):
			}
			continue

		case StatusCanceled:
			g.cleanup(ctx, jobID, kbID, indexer)
			return false

		case StatusFailed, StatusCompleted:
			return false

		default:
			g.log.Warn("gate observed unexpected status", slog.String("status", string(status)))
			return false
		}
	}
}

// cleanup performs the cancel path's destructive side effect: delete the KB's
// indexed records for this job, then reset the job to not_started with a
// clean checkpoint/counters so re-ingestion starts fresh.
func (g *Gate) cleanup(ctx context.Context, jobID uuid.UUID, kbID string, indexer Indexer) {
	if err := indexer.DeleteByJob(ctx, jobID.String(), kbID); err != nil {
		g.log.Error("destructive cleanup failed, manual cleanup may be required",
			logger.Error(err), slog.String("jobId", jobID.String()), slog.String("kbId", kbID))
	}

	if err := g.store.SetJobStatus(ctx, jobID, StatusNotStarted, nil, "Canceled by user"); err != nil {
		g.log.Error("failed to set job status after cancel cleanup", logger.Error(err))
		return
	}

	emptyCheckpoint := Checkpoint{LastBatchID: -1}
	emptyCounters := Counters{}
	if err := g.store.UpdateJob(ctx, jobID, &emptyCheckpoint, &emptyCounters); err != nil {
		g.log.Error("failed to clear checkpoint/counters after cancel cleanup", logger.Error(err))
	}
}
