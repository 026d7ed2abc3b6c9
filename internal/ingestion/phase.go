package ingestion

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PhaseName is one of the four canonical pipeline stages.
type PhaseName string

const (
	PhaseLoading   PhaseName = "loading"
	PhaseChunking  PhaseName = "chunking"
	PhaseEmbedding PhaseName = "embedding"
	PhaseIndexing  PhaseName = "indexing"
)

// CanonicalPhases is the fixed order used for current-phase derivation and
// status composition (§4.11).
var CanonicalPhases = []PhaseName{PhaseLoading, PhaseChunking, PhaseEmbedding, PhaseIndexing}

// PhaseStatus mirrors the job status vocabulary but is scoped to one phase.
type PhaseStatus string

const (
	PhaseStatusNotStarted PhaseStatus = "not_started"
	PhaseStatusRunning    PhaseStatus = "running"
	PhaseStatusPaused     PhaseStatus = "paused"
	PhaseStatusCompleted  PhaseStatus = "completed"
	PhaseStatusFailed     PhaseStatus = "failed"
)

// PhaseRow is one (job_id, phase_name) progress record. Used only for
// progress display; a failed write is logged and swallowed, never fatal.
type PhaseRow struct {
	bun.BaseModel `bun:"table:kb.ingestion_phases,alias:ip"`

	ID             uuid.UUID   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	JobID          uuid.UUID   `bun:"job_id,type:uuid,notnull" json:"jobId"`
	PhaseName      PhaseName   `bun:"phase_name,notnull" json:"phaseName"`
	Status         PhaseStatus `bun:"status,notnull,default:'not_started'" json:"status"`
	ProgressPct    float64     `bun:"progress_pct,notnull,default:0" json:"progressPct"`
	ItemsProcessed int64       `bun:"items_processed,notnull,default:0" json:"itemsProcessed"`
	ItemsTotal     *int64      `bun:"items_total" json:"itemsTotal,omitempty"`
	ErrorMessage   string      `bun:"error_message" json:"errorMessage,omitempty"`
	StartedAt      *time.Time  `bun:"started_at" json:"startedAt,omitempty"`
	CompletedAt    *time.Time  `bun:"completed_at" json:"completedAt,omitempty"`
}

// defaultPhaseRows returns the four canonical phases defaulted to not_started,
// used to fill in rows that were never created (spec §4.11: "defaulting
// missing ones to not_started").
func defaultPhaseRows(jobID uuid.UUID) map[PhaseName]*PhaseRow {
	rows := make(map[PhaseName]*PhaseRow, len(CanonicalPhases))
	for _, name := range CanonicalPhases {
		rows[name] = &PhaseRow{
			JobID:     jobID,
			PhaseName: name,
			Status:    PhaseStatusNotStarted,
		}
	}
	return rows
}
