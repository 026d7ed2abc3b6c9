package ingestion

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/emergent-company/emergent/domain/scheduler"
	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/pkg/logger"
)

// RecoverInflightJobsParams are the fx-injected dependencies for the
// boot-time recovery invoke.
type RecoverInflightJobsParams struct {
	fx.In

	Store Store
	Log   *slog.Logger
}

// RecoverInflightJobsOnStart moves every job stuck in running to failed at
// process boot (spec §4.10's decided crash-recovery policy: running is
// assumed abandoned, not resumable, on restart).
func RecoverInflightJobsOnStart(lc fx.Lifecycle, p RecoverInflightJobsParams) {
	log := p.Log.With(logger.Scope("ingestion.recovery"))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			n, err := p.Store.RecoverInflightJobs(ctx)
			if err != nil {
				log.Error("failed to recover inflight ingestion jobs at boot", logger.Error(err))
				return nil
			}
			if n > 0 {
				log.Info("recovered inflight ingestion jobs at boot", slog.Int("count", n))
			}
			return nil
		},
	})
}

// staleJobSweepTaskName identifies this job's entry in the shared Scheduler.
const staleJobSweepTaskName = "ingestion.stale_job_sweep"

// RegisterStaleJobSweep schedules a periodic sweep that fails any job whose
// heartbeat has gone silent past the configured threshold, covering the case
// the boot-time recovery misses: a worker process crashing without a full
// process restart of the scheduler host (spec §4.10, §9).
func RegisterStaleJobSweep(sched *scheduler.Scheduler, store Store, cfg *config.Config, log *slog.Logger) error {
	log = log.With(logger.Scope("ingestion.recovery"))
	threshold := cfg.Ingestion.StaleJobThreshold
	cronExpr := cfg.Ingestion.StaleJobSweepCron

	return sched.AddCronTask(staleJobSweepTaskName, cronExpr, func(ctx context.Context) error {
		n, err := store.RecoverStaleJobs(ctx, threshold)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Warn("stale-job sweep recovered jobs", slog.Int("count", n), slog.Duration("threshold", threshold))
		}
		return nil
	})
}
