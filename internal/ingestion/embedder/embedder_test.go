package embedder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/emergent/internal/ingestion"
)

type fakeClient struct {
	vectors [][]float32
	err     error
	calls   int
}

func (f *fakeClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

func TestEmbedReturnsVectorAndStampsMetadata(t *testing.T) {
	client := &fakeClient{vectors: [][]float32{{0.1, 0.2, 0.3}}}
	e := New(client, 100, 4)

	chunk := ingestion.Chunk{ContentHash: "h1", Text: "hello", KBID: "kb-1", DocID: "doc-1", URL: "file://a", Section: "0"}
	result, err := e.Embed(context.Background(), chunk)

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, result.Vector)
	assert.Equal(t, "h1", result.ContentHash)
	assert.Equal(t, "kb-1", result.Metadata["kb_id"])
	assert.Equal(t, "doc-1", result.Metadata["doc_id"])
	assert.Equal(t, "file://a", result.Metadata["url"])
	assert.Equal(t, "0", result.Metadata["section"])
}

func TestEmbedPropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("embed backend unavailable")}
	e := New(client, 100, 4)

	_, err := e.Embed(context.Background(), ingestion.Chunk{ContentHash: "h1", Text: "hello"})
	assert.ErrorContains(t, err, "embed backend unavailable")
}

func TestEmbedErrorsOnEmptyVectorResponse(t *testing.T) {
	client := &fakeClient{vectors: [][]float32{}}
	e := New(client, 100, 4)

	_, err := e.Embed(context.Background(), ingestion.Chunk{ContentHash: "h1", Text: "hello"})
	assert.ErrorContains(t, err, "no vectors")
}

// blockingClient blocks every call until release is closed, letting tests
// hold the embedder's only concurrency slot open.
type blockingClient struct {
	release chan struct{}
}

func (b *blockingClient) EmbedDocuments(ctx context.Context, documents []string) ([][]float32, error) {
	<-b.release
	return [][]float32{{0}}, nil
}

func TestEmbedRespectsConcurrencyLimit(t *testing.T) {
	client := &blockingClient{release: make(chan struct{})}
	e := New(client, 1000, 1) // only one in-flight call allowed

	done := make(chan error, 2)
	go func() {
		_, err := e.Embed(context.Background(), ingestion.Chunk{ContentHash: "h1", Text: "a"})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond) // let the first call acquire the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := e.Embed(ctx, ingestion.Chunk{ContentHash: "h2", Text: "b"})
	assert.Error(t, err, "second concurrent call should block on the semaphore and time out")

	close(client.release)
	require.NoError(t, <-done)
}

func TestNewDefaultsInvalidRateAndConcurrency(t *testing.T) {
	client := &fakeClient{vectors: [][]float32{{0}}}
	e := New(client, 0, 0)

	require.NotNil(t, e.limiter)
	require.NotNil(t, e.concurrency)

	_, err := e.Embed(context.Background(), ingestion.Chunk{ContentHash: "h1", Text: "hello"})
	assert.NoError(t, err)
}
