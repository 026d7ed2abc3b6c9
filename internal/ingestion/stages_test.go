package ingestion

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipelineContext(t *testing.T, store Store, shutdown *ShutdownManager, idx Indexer) *PipelineContext {
	t.Helper()
	jobID := uuid.New()
	store.(*fakeStore).putJob(&Job{ID: jobID, KBID: "kb-1", Status: StatusRunning})
	if shutdown != nil {
		shutdown.RegisterJob(jobID.String())
	}
	return &PipelineContext{
		KBID:       "kb-1",
		JobID:      jobID,
		BatchID:    1,
		Checkpoint: &Checkpoint{LastBatchID: 0},
		Counters:   &Counters{},
		Components: Components{Chunker: fakeChunker{}, Indexer: idx},
		Store:      store,
		Gate:       NewGate(store, 0, slog.Default()),
		Shutdown:   shutdown,
		Processor:  NewChunkProcessor(&fakeEmbedder{}, idx, fastRetryPolicy(), slog.Default()),
		Layout:     NewLayout(t.TempDir(), "kb-1"),
		log:        slog.Default(),
	}
}

func TestLoadingStagePersistsDocumentsAndCounters(t *testing.T) {
	store := newFakeStore()
	pc := newTestPipelineContext(t, store, NewShutdownManager(slog.Default()), newFakeIndexer())

	docs := []Document{
		{ID: "doc-a", Text: "hello", Metadata: map[string]any{"url": "file://a"}},
		{ID: "doc-b", Text: "world", Metadata: map[string]any{"url": "file://b"}},
	}

	result := pc.LoadingStage(context.Background(), docs)
	assert.True(t, result.Continue)
	assert.EqualValues(t, 2, pc.Counters.DocsSeen)
}

func TestChunkingStageProducesChunksAndCounters(t *testing.T) {
	store := newFakeStore()
	pc := newTestPipelineContext(t, store, NewShutdownManager(slog.Default()), newFakeIndexer())

	docs := []Document{{ID: "doc-a", Text: "hello"}, {ID: "doc-b", Text: "world"}}
	chunks, result := pc.ChunkingStage(context.Background(), docs)

	require.True(t, result.Continue)
	assert.Len(t, chunks, 2)
	assert.EqualValues(t, 2, pc.Counters.ChunksSeen)
}

func TestChunkingStageFailurePropagates(t *testing.T) {
	store := newFakeStore()
	pc := newTestPipelineContext(t, store, NewShutdownManager(slog.Default()), newFakeIndexer())
	pc.Components.Chunker = erroringChunker{}

	_, result := pc.ChunkingStage(context.Background(), []Document{{ID: "doc-a", Text: "x"}})
	assert.False(t, result.Continue)

	phases, err := store.GetAllPhaseStatuses(context.Background(), pc.JobID)
	require.NoError(t, err)
	assert.Equal(t, PhaseStatusFailed, phases[PhaseChunking].Status)
}

func TestEmbeddingIndexingStageProcessesAllChunks(t *testing.T) {
	store := newFakeStore()
	idx := newFakeIndexer()
	pc := newTestPipelineContext(t, store, NewShutdownManager(slog.Default()), idx)

	chunks := []Chunk{
		{ContentHash: "h1", KBID: "kb-1"},
		{ContentHash: "h2", KBID: "kb-1"},
	}

	result := pc.EmbeddingIndexingStage(context.Background(), chunks)
	assert.True(t, result.Continue)
	assert.EqualValues(t, 2, pc.Counters.ChunksProcessed)
	assert.Len(t, idx.records, 2)
}

func TestEmbeddingIndexingStageStopsOnShutdownAndRewindsCheckpoint(t *testing.T) {
	store := newFakeStore()
	idx := newFakeIndexer()
	shutdown := NewShutdownManager(slog.Default())
	pc := newTestPipelineContext(t, store, shutdown, idx)
	pc.BatchID = 5
	pc.Checkpoint.LastBatchID = 4

	shutdown.RequestShutdown(pc.JobID.String())

	chunks := []Chunk{{ContentHash: "h1", KBID: "kb-1"}}
	result := pc.EmbeddingIndexingStage(context.Background(), chunks)

	assert.False(t, result.Continue)
	assert.Equal(t, 4, pc.Checkpoint.LastBatchID)
	assert.Empty(t, idx.records, "no chunk should be processed once shutdown is requested")

	job, err := store.GetJob(context.Background(), pc.JobID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, job.Status)
}

func TestEmbeddingIndexingStageStopsWhenGateDenies(t *testing.T) {
	store := newFakeStore()
	idx := newFakeIndexer()
	pc := newTestPipelineContext(t, store, NewShutdownManager(slog.Default()), idx)
	pc.BatchID = 3
	pc.Checkpoint.LastBatchID = 2

	job, err := store.GetJob(context.Background(), pc.JobID)
	require.NoError(t, err)
	job.Status = StatusFailed

	chunks := []Chunk{{ContentHash: "h1", KBID: "kb-1"}}
	result := pc.EmbeddingIndexingStage(context.Background(), chunks)

	assert.False(t, result.Continue)
	assert.Equal(t, 2, pc.Checkpoint.LastBatchID)
	assert.Empty(t, idx.records)
}

// erroringChunker always fails, used to exercise ChunkingStage's failure path.
type erroringChunker struct{}

func (erroringChunker) Chunk(ctx context.Context, kbID string, docs []Document) ([]Chunk, error) {
	return nil, assert.AnError
}
