package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ingestion_jobs_running",
		Help: "Number of ingestion jobs currently executing",
	})

	JobsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_jobs_started_total",
		Help: "Total number of ingestion jobs started",
	}, []string{"kb_id", "source_type"})

	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_jobs_finished_total",
		Help: "Total number of ingestion jobs that reached a terminal status",
	}, []string{"status"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_batch_duration_seconds",
		Help:    "Time to fully process one batch (load, chunk, embed, index)",
		Buckets: prometheus.DefBuckets,
	})

	ChunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_chunks_processed_total",
		Help: "Total number of chunks by outcome",
	}, []string{"outcome"})
)
