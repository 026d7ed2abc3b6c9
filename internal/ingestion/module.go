// Package ingestion implements the knowledge-base ingestion pipeline: job
// lifecycle, gate/shutdown coordination, retry policy, pipeline stages, and
// the capability ports (Loader/Chunker/Embedder/Indexer) that plug into it.
package ingestion

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/emergent-company/emergent/internal/config"
	"github.com/emergent-company/emergent/internal/ingestion/chunker"
	"github.com/emergent-company/emergent/internal/ingestion/embedder"
	"github.com/emergent-company/emergent/internal/ingestion/httpapi"
	"github.com/emergent-company/emergent/internal/ingestion/indexer"
	"github.com/emergent-company/emergent/internal/ingestion/loader"
	"github.com/emergent-company/emergent/domain/scheduler"
	"github.com/emergent-company/emergent/pkg/embeddings"
	"github.com/emergent-company/emergent/pkg/textsplitter"
)

// Module wires the full ingestion pipeline: durable store, gate, shutdown
// manager, coordinator, service, recovery, and the HTTP surface. Grounded on
// domain/chunking/module.go and domain/extraction/module.go's
// fx.Module/fx.Provide/fx.Invoke shape.
var Module = fx.Module("ingestion",
	fx.Provide(
		NewStore,
		provideGate,
		NewShutdownManager,
		provideLayoutFactory,
		provideComponentFactory,
		provideCoordinator,
		NewService,
		httpapi.NewHandler,
	),
	fx.Invoke(
		RecoverInflightJobsOnStart,
		registerStaleJobSweep,
		registerRoutes,
		installSignalHandler,
	),
)

func provideGate(store Store, cfg *config.Config, log *slog.Logger) *Gate {
	return NewGate(store, cfg.Ingestion.GateCheckInterval, log)
}

func provideLayoutFactory(cfg *config.Config) func(kbID string) Layout {
	dataDir := cfg.Ingestion.DataDir
	return func(kbID string) Layout {
		return NewLayout(dataDir, kbID)
	}
}

func provideCoordinator(store Store, gate *Gate, shutdown *ShutdownManager, layout func(kbID string) Layout, cfg *config.Config, log *slog.Logger) *Coordinator {
	policy := RetryPolicy{
		MaxAttempts:       cfg.Ingestion.MaxAttempts,
		BackoffMultiplier: cfg.Ingestion.BackoffMultiplier,
		MaxBackoff:        cfg.Ingestion.MaxBackoff,
	}
	return NewCoordinator(store, gate, shutdown, layout, policy, log)
}

// provideComponentFactory builds the capability ports for a job, currently
// the filesystem Loader (the one in-scope source, spec §1) paired with the
// textsplitter Chunker, rate-limited embeddings.Client Embedder, and
// pgvector Indexer.
func provideComponentFactory(db *bun.DB, embedSvc *embeddings.Service, layout func(kbID string) Layout, cfg *config.Config, log *slog.Logger) ComponentFactory {
	chk := chunker.New(textsplitter.DefaultConfig())
	emb := embedder.New(embedSvc, cfg.Ingestion.EmbedderRatePerSecond, cfg.Ingestion.EmbedderConcurrency)
	idx := indexer.New(db, func(kbID string) Layout { return layout(kbID) }, log)

	return func(kbID, sourceType string, sourceConfig map[string]any) (Components, error) {
		sourceRoot, _ := sourceConfig["path"].(string)
		if sourceRoot == "" {
			sourceRoot = layout(kbID).DocumentsDir()
		}

		ld, err := loader.New(sourceRoot, cfg.Ingestion.BatchSize)
		if err != nil {
			return Components{}, err
		}

		return Components{
			Loader:   ld,
			Chunker:  chk,
			Embedder: emb,
			Indexer:  idx,
		}, nil
	}
}

func registerStaleJobSweep(sched *scheduler.Scheduler, store Store, cfg *config.Config, log *slog.Logger) error {
	return RegisterStaleJobSweep(sched, store, cfg, log)
}

func registerRoutes(e *echo.Echo, h *httpapi.Handler) {
	h.Register(e.Group(""))
}

func installSignalHandler(shutdown *ShutdownManager, svc *Service) {
	shutdown.InstallSignalHandler(svc.PauseAll)
}
