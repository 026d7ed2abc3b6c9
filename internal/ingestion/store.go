package ingestion

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// Store is the durable Job Store + Phase Store contract (spec §4.2). All
// phase-row methods are best-effort: callers log and swallow their errors so
// telemetry storage never blocks the pipeline.
type Store interface {
	CreateJob(ctx context.Context, kbID, sourceType string, sourceConfig map[string]any, priority int) (*Job, error)
	GetLatestJob(ctx context.Context, kbID string) (*Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status Status, finishedAt *time.Time, lastError string) error
	UpdateJob(ctx context.Context, jobID uuid.UUID, checkpoint *Checkpoint, counters *Counters) error
	UpdateHeartbeat(ctx context.Context, jobID uuid.UUID) error
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (Status, error)
	RecoverInflightJobs(ctx context.Context) (int, error)
	RecoverStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) (int, error)

	StartPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsTotal *int64)
	CompletePhase(ctx context.Context, jobID uuid.UUID, phase PhaseName)
	FailPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, errMsg string)
	UpdatePhaseProgress(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsProcessed int64, progressPct float64)
	GetAllPhaseStatuses(ctx context.Context, jobID uuid.UUID) (map[PhaseName]*PhaseRow, error)
}

// bunStore is the PostgreSQL-backed Store, grounded directly on
// internal/jobs/queue.go's bun.IDB binding and raw-SQL atomic-update style.
type bunStore struct {
	db  bun.IDB
	log *slog.Logger
}

// NewStore builds the Postgres-backed Job Store + Phase Store.
func NewStore(db bun.IDB, log *slog.Logger) Store {
	return &bunStore{db: db, log: log.With(logger.Scope("ingestion.store"))}
}

func (s *bunStore) CreateJob(ctx context.Context, kbID, sourceType string, sourceConfig map[string]any, priority int) (*Job, error) {
	if sourceConfig == nil {
		sourceConfig = map[string]any{}
	}
	job := &Job{
		ID:           uuid.New(),
		KBID:         kbID,
		SourceType:   sourceType,
		SourceConfig: sourceConfig,
		Status:       StatusPending,
		Checkpoint:   Checkpoint{LastBatchID: -1},
		Counters:     Counters{},
		Priority:     priority,
	}
	if _, err := s.db.NewInsert().Model(job).Exec(ctx); err != nil {
		return nil, apperror.NewInternal("failed to create ingestion job", err)
	}
	return job, nil
}

// GetLatestJob returns the most recently created job for kbID, or nil if none
// exists.
func (s *bunStore) GetLatestJob(ctx context.Context, kbID string) (*Job, error) {
	job := new(Job)
	err := s.db.NewSelect().
		Model(job).
		Where("kb_id = ?", kbID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewInternal("failed to get latest ingestion job", err)
	}
	return job, nil
}

func (s *bunStore) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	job := new(Job)
	err := s.db.NewSelect().Model(job).Where("id = ?", jobID).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, apperror.NewNotFound("ingestion job", jobID.String())
	}
	if err != nil {
		return nil, apperror.NewInternal("failed to get ingestion job", err)
	}
	return job, nil
}

// SetJobStatus writes the status field only; it performs no transition
// validation (enforcement lives in the §4.1 code path, i.e. callers must call
// Transition themselves before invoking this).
func (s *bunStore) SetJobStatus(ctx context.Context, jobID uuid.UUID, status Status, finishedAt *time.Time, lastError string) error {
	q := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", status).
		Set("updated_at = now()").
		Where("id = ?", jobID)

	if finishedAt != nil {
		q = q.Set("finished_at = ?", *finishedAt)
	}
	if lastError != "" {
		q = q.Set("last_error = ?", lastError)
	}

	if _, err := q.Exec(ctx); err != nil {
		return apperror.NewInternal("failed to set ingestion job status", err)
	}
	return nil
}

func (s *bunStore) UpdateJob(ctx context.Context, jobID uuid.UUID, checkpoint *Checkpoint, counters *Counters) error {
	q := s.db.NewUpdate().Model((*Job)(nil)).Set("updated_at = now()").Where("id = ?", jobID)
	if checkpoint != nil {
		q = q.Set("checkpoint = ?", checkpoint)
	}
	if counters != nil {
		q = q.Set("counters = ?", counters)
	}
	if _, err := q.Exec(ctx); err != nil {
		return apperror.NewInternal("failed to update ingestion job", err)
	}
	return nil
}

func (s *bunStore) UpdateHeartbeat(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("heartbeat_at = now()").
		Where("id = ?", jobID).
		Exec(ctx)
	if err != nil {
		return apperror.NewInternal("failed to update ingestion job heartbeat", err)
	}
	return nil
}

func (s *bunStore) GetJobStatus(ctx context.Context, jobID uuid.UUID) (Status, error) {
	var status Status
	err := s.db.NewSelect().
		Model((*Job)(nil)).
		Column("status").
		Where("id = ?", jobID).
		Scan(ctx, &status)
	if err == sql.ErrNoRows {
		return "", apperror.NewNotFound("ingestion job", jobID.String())
	}
	if err != nil {
		return "", apperror.NewInternal("failed to get ingestion job status", err)
	}
	return status, nil
}

// RecoverInflightJobs moves every job stuck in `running` to `failed`, per the
// policy decision recorded in DESIGN.md. Returns the number of jobs recovered.
func (s *bunStore) RecoverInflightJobs(ctx context.Context) (int, error) {
	result, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", StatusFailed).
		Set("last_error = ?", "abnormal termination: process restarted while job was running").
		Set("finished_at = now()").
		Set("updated_at = now()").
		Where("status = ?", StatusRunning).
		Exec(ctx)
	if err != nil {
		return 0, apperror.NewInternal("failed to recover inflight ingestion jobs", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.log.Warn("recovered inflight ingestion jobs", slog.Int64("count", n))
	}
	return int(n), nil
}

// RecoverStaleJobs fails every running job whose heartbeat has gone silent
// past heartbeatThreshold, covering a worker crash that leaves the rest of
// the process alive (unlike RecoverInflightJobs, which only runs once at
// process boot). Grounded on internal/jobs/queue.go's RecoverStaleJobs.
func (s *bunStore) RecoverStaleJobs(ctx context.Context, heartbeatThreshold time.Duration) (int, error) {
	if heartbeatThreshold <= 0 {
		heartbeatThreshold = 10 * time.Minute
	}

	thresholdSeconds := fmt.Sprintf("%d seconds", int(heartbeatThreshold.Seconds()))
	result, err := s.db.NewUpdate().
		Model((*Job)(nil)).
		Set("status = ?", StatusFailed).
		Set("last_error = ?", "abnormal termination: heartbeat stale past threshold").
		Set("finished_at = now()").
		Set("updated_at = now()").
		Where("status = ?", StatusRunning).
		Where("heartbeat_at IS NULL OR heartbeat_at < now() - ?::interval", thresholdSeconds).
		Exec(ctx)
	if err != nil {
		return 0, apperror.NewInternal("failed to recover stale ingestion jobs", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.log.Warn("recovered stale ingestion jobs", slog.Int64("count", n))
	}
	return int(n), nil
}

func (s *bunStore) StartPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsTotal *int64) {
	row := &PhaseRow{
		JobID:     jobID,
		PhaseName: phase,
		Status:    PhaseStatusRunning,
	}
	now := time.Now()
	row.StartedAt = &now
	row.ItemsTotal = itemsTotal

	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (job_id, phase_name) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("started_at = EXCLUDED.started_at").
		Set("items_total = EXCLUDED.items_total").
		Exec(ctx)
	if err != nil {
		s.log.Error("failed to start phase row", logger.Error(err), slog.String("phase", string(phase)))
	}
}

func (s *bunStore) CompletePhase(ctx context.Context, jobID uuid.UUID, phase PhaseName) {
	_, err := s.db.NewUpdate().
		Model((*PhaseRow)(nil)).
		Set("status = ?", PhaseStatusCompleted).
		Set("progress_pct = 100").
		Set("completed_at = now()").
		Where("job_id = ?", jobID).
		Where("phase_name = ?", phase).
		Exec(ctx)
	if err != nil {
		s.log.Error("failed to complete phase row", logger.Error(err), slog.String("phase", string(phase)))
	}
}

func (s *bunStore) FailPhase(ctx context.Context, jobID uuid.UUID, phase PhaseName, errMsg string) {
	_, err := s.db.NewUpdate().
		Model((*PhaseRow)(nil)).
		Set("status = ?", PhaseStatusFailed).
		Set("error_message = ?", errMsg).
		Set("completed_at = now()").
		Where("job_id = ?", jobID).
		Where("phase_name = ?", phase).
		Exec(ctx)
	if err != nil {
		s.log.Error("failed to fail phase row", logger.Error(err), slog.String("phase", string(phase)))
	}
}

func (s *bunStore) UpdatePhaseProgress(ctx context.Context, jobID uuid.UUID, phase PhaseName, itemsProcessed int64, progressPct float64) {
	_, err := s.db.NewUpdate().
		Model((*PhaseRow)(nil)).
		Set("items_processed = ?", itemsProcessed).
		Set("progress_pct = ?", progressPct).
		Where("job_id = ?", jobID).
		Where("phase_name = ?", phase).
		Exec(ctx)
	if err != nil {
		s.log.Error("failed to update phase progress", logger.Error(err), slog.String("phase", string(phase)))
	}
}

func (s *bunStore) GetAllPhaseStatuses(ctx context.Context, jobID uuid.UUID) (map[PhaseName]*PhaseRow, error) {
	var rows []*PhaseRow
	err := s.db.NewSelect().Model(&rows).Where("job_id = ?", jobID).Scan(ctx)
	if err != nil {
		return nil, apperror.NewInternal("failed to get phase statuses", err)
	}

	result := defaultPhaseRows(jobID)
	for _, row := range rows {
		result[row.PhaseName] = row
	}
	return result, nil
}
