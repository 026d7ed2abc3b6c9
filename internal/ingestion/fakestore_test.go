package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store used across this package's tests. It
// mirrors bunStore's observable behavior without a database.
type fakeStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*Job
	phases   map[uuid.UUID]map[PhaseName]*PhaseRow
	statuses []Status // records the sequence of SetJobStatus calls, for assertions
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:   make(map[uuid.UUID]*Job),
		phases: make(map[uuid.UUID]map[PhaseName]*PhaseRow),
	}
}

func (f *fakeStore) putJob(j *Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func (f *fakeStore) CreateJob(ctx context.Context, kbID, sourceType string, sourceConfig map[string]any, priority int) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := &Job{
		ID:           uuid.New(),
		KBID:         kbID,
		SourceType:   sourceType,
		SourceConfig: sourceConfig,
		Status:       StatusPending,
		Checkpoint:   Checkpoint{LastBatchID: -1},
		Priority:     priority,
	}
	f.jobs[j.ID] = j
	return j, nil
}

func (f *fakeStore) GetLatestJob(ctx context.Context, kbID string) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Job
	for _, j := range f.jobs {
		if j.KBID != kbID {
			continue
		}
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest, nil
}

func (f *fakeStore) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID], nil
}

func (f *fakeStore) SetJobStatus(ctx context.Context, jobID uuid.UUID, status Status, finishedAt *time.Time, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if j, ok := f.jobs[jobID]; ok {
		j.Status = status
		j.FinishedAt = finishedAt
		j.LastError = lastError
	}
	return nil
}

func (f *fakeStore) UpdateJob(ctx context.Context, jobID uuid.UUID, checkpoint *Checkpoint, counters *Counters) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return nil
	}
	if checkpoint != nil {
		j.Checkpoint = *checkpoint
	}
	if counters != nil {
		j.Counters = *counters
	}
	return nil
}

func (f *fakeStore) UpdateHeartbeat(ctx context.Context, jobID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[jobID]; ok {
		now := time.Now()
		j.HeartbeatAt = &now
	}
	return nil
}

func (f *fakeStore) GetJobStatus(ctx context.Context, jobID uuid.UUID) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[jobID]
	if !ok {
		return "", nil
	}
	return j.Status, nil
}

func (f *fakeStore) RecoverInflightJobs(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, j := range f.jobs {
		if j.Status == StatusRunning {
			j.Status = StatusFailed
			j.LastError = "abnormal termination: recovered at startup"
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RecoverStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, j := range f.jobs {
		if j.Status != StatusRunning {
			continue
		}
		if j.HeartbeatAt == nil || time.Since(*j.HeartbeatAt) > heartbeatThreshold {
			j.Status = StatusFailed
			j.LastError = "abnormal termination: heartbeat stale past threshold"
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) StartPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsTotal *int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePhases(jobID)
	row := f.phases[jobID][phase]
	row.Status = PhaseStatusRunning
	row.ItemsTotal = itemsTotal
}

func (f *fakeStore) CompletePhase(ctx context.Context, jobID uuid.UUID, phase PhaseName) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePhases(jobID)
	row := f.phases[jobID][phase]
	row.Status = PhaseStatusCompleted
	row.ProgressPct = 100
}

func (f *fakeStore) FailPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePhases(jobID)
	row := f.phases[jobID][phase]
	row.Status = PhaseStatusFailed
	row.ErrorMessage = errMsg
}

func (f *fakeStore) UpdatePhaseProgress(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsProcessed int64, progressPct float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePhases(jobID)
	row := f.phases[jobID][phase]
	row.ItemsProcessed = itemsProcessed
	row.ProgressPct = progressPct
}

func (f *fakeStore) GetAllPhaseStatuses(ctx context.Context, jobID uuid.UUID) (map[PhaseName]*PhaseRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensurePhases(jobID)
	out := make(map[PhaseName]*PhaseRow, len(f.phases[jobID]))
	for k, v := range f.phases[jobID] {
		cp := *v
		out[k] = &cp
	}
	return out, nil
}

// ensurePhases must be called with f.mu held.
func (f *fakeStore) ensurePhases(jobID uuid.UUID) {
	if _, ok := f.phases[jobID]; !ok {
		f.phases[jobID] = defaultPhaseRows(jobID)
	}
}

var _ Store = (*fakeStore)(nil)
