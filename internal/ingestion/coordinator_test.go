package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(store Store, shutdown *ShutdownManager) *Coordinator {
	layout := func(kbID string) Layout { return NewLayout("", kbID) }
	return NewCoordinator(store, NewGate(store, time.Millisecond, slog.Default()), shutdown, layout, fastRetryPolicy(), slog.Default())
}

func runningJob(kbID string) *Job {
	return &Job{
		ID:         uuid.New(),
		KBID:       kbID,
		Status:     StatusRunning,
		Checkpoint: Checkpoint{LastBatchID: -1},
	}
}

func TestCoordinatorRunCompletesJobWithWork(t *testing.T) {
	store := newFakeStore()
	job := runningJob("kb-1")
	job.Checkpoint.LastBatchID = -1
	store.putJob(job)

	loader := &fakeLoader{batches: []Batch{
		{ID: 0, Documents: []Document{{ID: "a", Text: "hi"}}},
	}}
	idx := newFakeIndexer()
	components := Components{Loader: loader, Chunker: fakeChunker{}, Embedder: &fakeEmbedder{}, Indexer: idx}

	shutdown := NewShutdownManager(slog.Default())
	shutdown.RegisterJob(job.ID.String())

	c := newTestCoordinator(store, shutdown)
	c.layout = func(kbID string) Layout { return NewLayout(t.TempDir(), kbID) }
	c.Run(context.Background(), job, components)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.EqualValues(t, 1, got.Counters.ChunksProcessed)
	assert.True(t, idx.persisted["kb-1"])

	phases, err := store.GetAllPhaseStatuses(context.Background(), job.ID)
	require.NoError(t, err)
	for _, phase := range CanonicalPhases {
		assert.Equal(t, PhaseStatusCompleted, phases[phase].Status, "phase %s should be completed", phase)
	}
}

func TestCoordinatorRunFailsWhenLoaderYieldsNoDocuments(t *testing.T) {
	store := newFakeStore()
	job := runningJob("kb-1")
	store.putJob(job)

	loader := &fakeLoader{batches: nil}
	components := Components{Loader: loader, Chunker: fakeChunker{}, Embedder: &fakeEmbedder{}, Indexer: newFakeIndexer()}

	shutdown := NewShutdownManager(slog.Default())
	shutdown.RegisterJob(job.ID.String())

	c := newTestCoordinator(store, shutdown)
	c.layout = func(kbID string) Layout { return NewLayout(t.TempDir(), kbID) }
	c.Run(context.Background(), job, components)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, fatalNoDocuments, got.LastError)
}

func TestCoordinatorRunFailsOnLoaderError(t *testing.T) {
	store := newFakeStore()
	job := runningJob("kb-1")
	store.putJob(job)

	loader := &fakeLoader{err: errors.New("network unreachable")}
	components := Components{Loader: loader, Chunker: fakeChunker{}, Embedder: &fakeEmbedder{}, Indexer: newFakeIndexer()}

	shutdown := NewShutdownManager(slog.Default())
	shutdown.RegisterJob(job.ID.String())

	c := newTestCoordinator(store, shutdown)
	c.layout = func(kbID string) Layout { return NewLayout(t.TempDir(), kbID) }
	c.Run(context.Background(), job, components)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.LastError, "network unreachable")
}

func TestCoordinatorRunPausesOnShutdownRequest(t *testing.T) {
	store := newFakeStore()
	job := runningJob("kb-1")
	store.putJob(job)

	shutdown := NewShutdownManager(slog.Default())
	shutdown.RegisterJob(job.ID.String())
	shutdown.RequestShutdown(job.ID.String())

	loader := &fakeLoader{batches: []Batch{{ID: 0, Documents: []Document{{ID: "a", Text: "hi"}}}}}
	components := Components{Loader: loader, Chunker: fakeChunker{}, Embedder: &fakeEmbedder{}, Indexer: newFakeIndexer()}

	c := newTestCoordinator(store, shutdown)
	c.layout = func(kbID string) Layout { return NewLayout(t.TempDir(), kbID) }
	c.Run(context.Background(), job, components)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)
	assert.Equal(t, 0, loader.calls, "shutdown requested before the first pull should skip loading entirely")
}

func TestCoordinatorRunStopsImmediatelyWhenGateDenies(t *testing.T) {
	store := newFakeStore()
	job := runningJob("kb-1")
	job.Status = StatusCanceled
	store.putJob(job)

	loader := &fakeLoader{batches: []Batch{{ID: 0, Documents: []Document{{ID: "a", Text: "hi"}}}}}
	idx := newFakeIndexer()
	components := Components{Loader: loader, Chunker: fakeChunker{}, Embedder: &fakeEmbedder{}, Indexer: idx}

	shutdown := NewShutdownManager(slog.Default())
	shutdown.RegisterJob(job.ID.String())

	c := newTestCoordinator(store, shutdown)
	c.layout = func(kbID string) Layout { return NewLayout(t.TempDir(), kbID) }
	c.Run(context.Background(), job, components)

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, got.Status, "canceled job should be reset via the gate's cleanup path")
	assert.Equal(t, 0, loader.calls)
}
