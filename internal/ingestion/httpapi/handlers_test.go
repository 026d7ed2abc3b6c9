package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/ingestion"
	"github.com/emergent-company/emergent/pkg/auth"
)

// fakeStore is a minimal in-memory ingestion.Store used only to exercise the
// HTTP surface; the status-composition and recovery semantics are covered in
// the ingestion package's own tests.
type fakeStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*ingestion.Job
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[uuid.UUID]*ingestion.Job)}
}

func (f *fakeStore) CreateJob(ctx context.Context, kbID, sourceType string, sourceConfig map[string]any, priority int) (*ingestion.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &ingestion.Job{ID: uuid.New(), KBID: kbID, SourceType: sourceType, SourceConfig: sourceConfig, Status: ingestion.StatusPending, Priority: priority}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeStore) GetLatestJob(ctx context.Context, kbID string) (*ingestion.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *ingestion.Job
	for _, j := range f.jobs {
		if j.KBID == kbID {
			latest = j
		}
	}
	return latest, nil
}

func (f *fakeStore) GetJob(ctx context.Context, jobID uuid.UUID) (*ingestion.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID], nil
}

func (f *fakeStore) SetJobStatus(ctx context.Context, jobID uuid.UUID, status ingestion.Status, finishedAt *time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok {
		j.Status = status
		j.LastError = lastError
	}
	return nil
}

func (f *fakeStore) UpdateJob(ctx context.Context, jobID uuid.UUID, checkpoint *ingestion.Checkpoint, counters *ingestion.Counters) error {
	return nil
}

func (f *fakeStore) UpdateHeartbeat(ctx context.Context, jobID uuid.UUID) error { return nil }

func (f *fakeStore) GetJobStatus(ctx context.Context, jobID uuid.UUID) (ingestion.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok {
		return j.Status, nil
	}
	return "", nil
}

func (f *fakeStore) RecoverInflightJobs(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeStore) RecoverStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) (int, error) {
	return 0, nil
}

func (f *fakeStore) StartPhase(ctx context.Context, jobID uuid.UUID, phase ingestion.PhaseName, itemsTotal *int64) {
}
func (f *fakeStore) CompletePhase(ctx context.Context, jobID uuid.UUID, phase ingestion.PhaseName) {}
func (f *fakeStore) FailPhase(ctx context.Context, jobID uuid.UUID, phase ingestion.PhaseName, errMsg string) {
}
func (f *fakeStore) UpdatePhaseProgress(ctx context.Context, jobID uuid.UUID, phase ingestion.PhaseName, itemsProcessed int64, progressPct float64) {
}

func (f *fakeStore) GetAllPhaseStatuses(ctx context.Context, jobID uuid.UUID) (map[ingestion.PhaseName]*ingestion.PhaseRow, error) {
	rows := make(map[ingestion.PhaseName]*ingestion.PhaseRow, len(ingestion.CanonicalPhases))
	for _, name := range ingestion.CanonicalPhases {
		rows[name] = &ingestion.PhaseRow{JobID: jobID, PhaseName: name, Status: ingestion.PhaseStatusNotStarted}
	}
	return rows, nil
}

var _ ingestion.Store = (*fakeStore)(nil)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	store := newFakeStore()
	shutdown := ingestion.NewShutdownManager(slog.Default())
	gate := ingestion.NewGate(store, time.Millisecond, slog.Default())
	layout := func(kbID string) ingestion.Layout { return ingestion.NewLayout(t.TempDir(), kbID) }
	coord := ingestion.NewCoordinator(store, gate, shutdown, layout, ingestion.DefaultRetryPolicy(), slog.Default())

	components := func(kbID, sourceType string, sourceConfig map[string]any) (ingestion.Components, error) {
		return ingestion.Components{}, nil
	}

	cfg := &config.Config{}
	svc := ingestion.NewService(store, gate, shutdown, coord, components, layout, cfg, slog.Default())
	return NewHandler(svc)
}

func echoReq(method, path, body string, authed bool) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if authed {
		c.Set(string(auth.UserContextKey), &auth.AuthUser{ID: "user-1"})
	}
	return c, rec
}

func TestStartRejectsUnauthenticated(t *testing.T) {
	h := newTestHandler(t)
	c, _ := echoReq(http.MethodPost, "/ingestion/kb-1/start", `{"sourceType":"filesystem"}`, false)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-1")

	assert.Error(t, h.Start(c))
}

func TestStartRejectsMissingSourceType(t *testing.T) {
	h := newTestHandler(t)
	c, _ := echoReq(http.MethodPost, "/ingestion/kb-1/start", `{}`, true)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-1")

	assert.Error(t, h.Start(c))
}

func TestStartCreatesJob(t *testing.T) {
	h := newTestHandler(t)
	c, rec := echoReq(http.MethodPost, "/ingestion/kb-1/start", `{"sourceType":"filesystem"}`, true)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-1")

	require.NoError(t, h.Start(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var job ingestion.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "kb-1", job.KBID)
	assert.Equal(t, ingestion.StatusRunning, job.Status)
}

func TestStatusRejectsUnauthenticated(t *testing.T) {
	h := newTestHandler(t)
	c, _ := echoReq(http.MethodGet, "/ingestion/kb-1/status", "", false)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-1")

	assert.Error(t, h.Status(c))
}

func TestStatusReturns404WhenNoJobExists(t *testing.T) {
	h := newTestHandler(t)
	c, _ := echoReq(http.MethodGet, "/ingestion/kb-unknown/status", "", true)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-unknown")

	assert.Error(t, h.Status(c))
}

func TestPauseAndCancelRequireAuth(t *testing.T) {
	h := newTestHandler(t)

	c, _ := echoReq(http.MethodPost, "/ingestion/kb-1/pause", "", false)
	c.SetParamNames("kbId")
	c.SetParamValues("kb-1")
	assert.Error(t, h.Pause(c))

	c2, _ := echoReq(http.MethodPost, "/ingestion/kb-1/cancel", "", false)
	c2.SetParamNames("kbId")
	c2.SetParamValues("kb-1")
	assert.Error(t, h.Cancel(c2))
}
