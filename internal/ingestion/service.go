package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/ingestion/metrics"
	"github.com/emergent-company/emergent/pkg/apperror"
	"github.com/emergent-company/emergent/pkg/logger"
)

// ComponentFactory builds the capability ports for one job from its KB id and
// source config. Concrete wiring (which Loader/Chunker/Embedder/Indexer to
// use) is decided by module.go, not by the Service.
type ComponentFactory func(kbID, sourceType string, sourceConfig map[string]any) (Components, error)

// Service implements start/resume/pause/cancel/status/pause_all (spec §4.9).
// It owns the in-memory "one Coordinator per kb_id" invariant; durable state
// lives entirely in Store.
type Service struct {
	store      Store
	gate       *Gate
	shutdown   *ShutdownManager
	coord      *Coordinator
	components ComponentFactory
	layout     func(kbID string) Layout
	cfg        *config.IngestionConfig
	log        *slog.Logger

	mu      sync.Mutex
	running map[string]uuid.UUID // kb_id -> job_id of the Coordinator currently running
}

// NewService wires the Ingestion Service.
func NewService(store Store, gate *Gate, shutdown *ShutdownManager, coord *Coordinator, components ComponentFactory, layout func(kbID string) Layout, cfg *config.Config, log *slog.Logger) *Service {
	return &Service{
		store:      store,
		gate:       gate,
		shutdown:   shutdown,
		coord:      coord,
		components: components,
		layout:     layout,
		cfg:        &cfg.Ingestion,
		log:        log.With(logger.Scope("ingestion.service")),
		running:    make(map[string]uuid.UUID),
	}
}

// Start creates a new job for kbID and launches its Coordinator in the
// background. Returns apperror.ErrJobAlreadyRunning if one is already
// in-flight for this KB.
func (s *Service) Start(ctx context.Context, kbID, sourceType string, sourceConfig map[string]any, priority int) (*Job, error) {
	s.mu.Lock()
	if _, ok := s.running[kbID]; ok {
		s.mu.Unlock()
		return nil, apperror.ErrJobAlreadyRunning
	}
	s.mu.Unlock()

	job, err := s.store.CreateJob(ctx, kbID, sourceType, sourceConfig, priority)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetJobStatus(ctx, job.ID, StatusRunning, nil, ""); err != nil {
		return nil, err
	}
	job.Status = StatusRunning

	metrics.JobsStarted.WithLabelValues(kbID, sourceType).Inc()
	s.launch(job)
	return job, nil
}

// Resume restarts the Coordinator for the KB's most recent job, which must be
// in pending or paused state. Running jobs resume from their own Gate loop
// and need no Resume call; a resume after a process restart is how a paused
// or abnormally-stopped job is picked back up.
func (s *Service) Resume(ctx context.Context, kbID string) (*Job, error) {
	job, err := s.store.GetLatestJob(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperror.NewNotFound("ingestion job", kbID)
	}
	if !Transition(job.Status, StatusRunning) {
		return nil, apperror.ErrJobNotResumable
	}

	s.mu.Lock()
	if _, ok := s.running[kbID]; ok {
		s.mu.Unlock()
		return nil, apperror.ErrJobAlreadyRunning
	}
	s.mu.Unlock()

	if err := s.store.SetJobStatus(ctx, job.ID, StatusRunning, nil, ""); err != nil {
		return nil, err
	}
	job.Status = StatusRunning

	s.launch(job)
	return job, nil
}

// launch builds this job's capability ports and starts its Coordinator on a
// background goroutine, mirroring discoveryjobs.Service's
// "go s.processDiscoveryJob(context.Background(), ...)" pattern: a job
// outlives the HTTP request that started it.
func (s *Service) launch(job *Job) {
	s.mu.Lock()
	s.running[job.KBID] = job.ID
	s.mu.Unlock()

	s.shutdown.RegisterJob(job.ID.String())

	components, err := s.components(job.KBID, job.SourceType, job.SourceConfig)
	if err != nil {
		s.log.Error("failed to build components for job, failing job", logger.Error(err), slog.String("jobId", job.ID.String()))
		now := time.Now()
		_ = s.store.SetJobStatus(context.Background(), job.ID, StatusFailed, &now, err.Error())
		s.unregister(job)
		return
	}

	go func() {
		defer s.unregister(job)
		s.coord.Run(context.Background(), job, components)
	}()
}

func (s *Service) unregister(job *Job) {
	s.mu.Lock()
	delete(s.running, job.KBID)
	s.mu.Unlock()
	s.shutdown.UnregisterJob(job.ID.String())
}

// Pause requests a graceful, batch/chunk-boundary shutdown of the KB's
// running job. It is async: the job transitions to paused once its
// Coordinator observes the shutdown request.
func (s *Service) Pause(ctx context.Context, kbID string) error {
	job, err := s.store.GetLatestJob(ctx, kbID)
	if err != nil {
		return err
	}
	if job == nil {
		return apperror.NewNotFound("ingestion job", kbID)
	}
	if job.Status != StatusRunning {
		return apperror.ErrIllegalTransition
	}
	s.shutdown.RequestShutdown(job.ID.String())
	return nil
}

// PauseAll requests shutdown for every job this process currently has
// registered, used by process-level signal handling (spec §4.4, §5).
func (s *Service) PauseAll() {
	s.shutdown.RequestShutdown("")
}

// Cancel transitions a running or paused job to canceled. The Gate observes
// the canceled status on its next poll and performs the destructive cleanup
// (delete indexed records, reset to not_started).
func (s *Service) Cancel(ctx context.Context, kbID string) error {
	job, err := s.store.GetLatestJob(ctx, kbID)
	if err != nil {
		return err
	}
	if job == nil {
		return apperror.NewNotFound("ingestion job", kbID)
	}
	if !Transition(job.Status, StatusCanceled) {
		return apperror.ErrIllegalTransition
	}
	return s.store.SetJobStatus(ctx, job.ID, StatusCanceled, nil, "")
}

// Status returns the composed status view for kbID (spec §4.11), delegated
// to status.go's precedence logic.
func (s *Service) Status(ctx context.Context, kbID string) (*StatusView, error) {
	return ComposeStatus(ctx, s.store, s.layout(kbID), kbID)
}
