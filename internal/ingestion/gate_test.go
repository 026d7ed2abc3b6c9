package ingestion

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateCheckRunningProceeds(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusRunning}
	store.putJob(job)

	g := NewGate(store, time.Millisecond, slog.Default())
	idx := newFakeIndexer()

	assert.True(t, g.Check(context.Background(), job.ID, job.KBID, idx))
}

func TestGateCheckFailedStops(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusFailed}
	store.putJob(job)

	g := NewGate(store, time.Millisecond, slog.Default())
	assert.False(t, g.Check(context.Background(), job.ID, job.KBID, newFakeIndexer()))
}

func TestGateCheckCompletedStops(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusCompleted}
	store.putJob(job)

	g := NewGate(store, time.Millisecond, slog.Default())
	assert.False(t, g.Check(context.Background(), job.ID, job.KBID, newFakeIndexer()))
}

func TestGateCheckUnknownStatusStops(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: Status("bogus")}
	store.putJob(job)

	g := NewGate(store, time.Millisecond, slog.Default())
	assert.False(t, g.Check(context.Background(), job.ID, job.KBID, newFakeIndexer()))
}

func TestGateCheckPausedPollsThenProceedsWhenResumed(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusPaused}
	store.putJob(job)

	g := NewGate(store, 5*time.Millisecond, slog.Default())

	go func() {
		time.Sleep(15 * time.Millisecond)
		_ = store.SetJobStatus(context.Background(), job.ID, StatusRunning, nil, "")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.True(t, g.Check(ctx, job.ID, job.KBID, newFakeIndexer()))
}

func TestGateCheckPausedStopsWhenContextCanceled(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusPaused}
	store.putJob(job)

	g := NewGate(store, 50*time.Millisecond, slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.False(t, g.Check(ctx, job.ID, job.KBID, newFakeIndexer()))
}

func TestGateCheckCanceledRunsCleanupAndStops(t *testing.T) {
	store := newFakeStore()
	job := &Job{
		ID:         uuid.New(),
		KBID:       "kb-1",
		Status:     StatusCanceled,
		Checkpoint: Checkpoint{LastBatchID: 7},
		Counters:   Counters{DocsSeen: 3},
	}
	store.putJob(job)

	idx := newFakeIndexer()
	idx.records[indexerKey("kb-1", "hash-1")] = EmbeddingResult{
		ContentHash: "hash-1",
		Metadata:    map[string]any{"job_id": job.ID.String(), "kb_id": "kb-1"},
	}

	g := NewGate(store, time.Millisecond, slog.Default())
	assert.False(t, g.Check(context.Background(), job.ID, job.KBID, idx))

	require.Contains(t, idx.deletedJobs, job.ID.String())
	assert.Empty(t, idx.records, "canceled job's indexed records should be deleted")

	updated, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, updated.Status)
	assert.Equal(t, -1, updated.Checkpoint.LastBatchID)
	assert.Zero(t, updated.Counters)
}
