package ingestion

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/emergent-company/emergent/domain/scheduler"
	"github.com/emergent-company/emergent/internal/config"
)

// fakeLifecycle captures appended hooks so a test can invoke them directly,
// mirroring how fx itself would drive OnStart at application boot.
type fakeLifecycle struct {
	hooks []fx.Hook
}

func (f *fakeLifecycle) Append(h fx.Hook) {
	f.hooks = append(f.hooks, h)
}

func TestRecoverInflightJobsOnStartFailsRunningJobs(t *testing.T) {
	store := newFakeStore()
	job := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusRunning}
	store.putJob(job)
	other := &Job{ID: uuid.New(), KBID: "kb-2", Status: StatusPaused}
	store.putJob(other)

	lc := &fakeLifecycle{}
	RecoverInflightJobsOnStart(lc, RecoverInflightJobsParams{Store: store, Log: slog.Default()})

	require.Len(t, lc.hooks, 1)
	require.NoError(t, lc.hooks[0].OnStart(context.Background()))

	got, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)

	untouched, err := store.GetJob(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, untouched.Status, "paused jobs are not touched by boot-time recovery")
}

func TestRecoverStaleJobsFailsOnlyJobsPastHeartbeatThreshold(t *testing.T) {
	store := newFakeStore()

	stale := &Job{ID: uuid.New(), KBID: "kb-1", Status: StatusRunning}
	staleHeartbeat := time.Now().Add(-time.Hour)
	stale.HeartbeatAt = &staleHeartbeat
	store.putJob(stale)

	fresh := &Job{ID: uuid.New(), KBID: "kb-2", Status: StatusRunning}
	freshHeartbeat := time.Now()
	fresh.HeartbeatAt = &freshHeartbeat
	store.putJob(fresh)

	n, err := store.RecoverStaleJobs(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gotStale, err := store.GetJob(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, gotStale.Status)

	gotFresh, err := store.GetJob(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, gotFresh.Status)
}

func TestRegisterStaleJobSweepRegistersCronTaskWithoutError(t *testing.T) {
	store := newFakeStore()
	sched := scheduler.NewScheduler(slog.Default())
	cfg := &config.Config{}
	cfg.Ingestion.StaleJobThreshold = 10 * time.Minute
	cfg.Ingestion.StaleJobSweepCron = "@every 1m"

	require.NoError(t, RegisterStaleJobSweep(sched, store, cfg, slog.Default()))
}

func TestRegisterStaleJobSweepRejectsInvalidCronExpression(t *testing.T) {
	store := newFakeStore()
	sched := scheduler.NewScheduler(slog.Default())
	cfg := &config.Config{}
	cfg.Ingestion.StaleJobThreshold = 10 * time.Minute
	cfg.Ingestion.StaleJobSweepCron = "not a cron expression"

	assert.Error(t, RegisterStaleJobSweep(sched, store, cfg, slog.Default()))
}
