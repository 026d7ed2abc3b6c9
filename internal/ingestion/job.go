package ingestion

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the job lifecycle state, see spec §4.1.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRunning    Status = "running"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
	StatusNotStarted Status = "not_started"
)

// allowedTransitions is the full table of legal (current, target) pairs. Any
// pair not present here is refused by Transition without mutating state.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusRunning:  true,
		StatusCanceled: true,
	},
	StatusRunning: {
		StatusPaused:    true,
		StatusCompleted: true,
		StatusFailed:    true,
		StatusCanceled:  true,
	},
	StatusPaused: {
		StatusRunning:  true,
		StatusCanceled: true,
	},
	StatusCanceled: {
		StatusNotStarted: true,
	},
}

// Transition reports whether moving from current to target is legal.
func Transition(current, target Status) bool {
	targets, ok := allowedTransitions[current]
	if !ok {
		return false
	}
	return targets[target]
}

// IsTerminal reports whether the status admits no further pipeline progress.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Counters are the per-job progress counters maintained by the Coordinator.
type Counters struct {
	DocsSeen        int64 `json:"docsSeen"`
	ChunksSeen      int64 `json:"chunksSeen"`
	ChunksProcessed int64 `json:"chunksProcessed"`
	ChunksSkipped   int64 `json:"chunksSkipped"`
	ChunksError     int64 `json:"chunksError"`
}

// Checkpoint is the opaque-to-callers marker a resumed run restarts from.
type Checkpoint struct {
	LastBatchID int `json:"lastBatchId"`
}

// Job is the durable record of one ingestion run for one KB.
type Job struct {
	bun.BaseModel `bun:"table:kb.ingestion_jobs,alias:ij"`

	ID             uuid.UUID      `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	KBID           string         `bun:"kb_id,notnull" json:"kbId"`
	SourceType     string         `bun:"source_type,notnull" json:"sourceType"`
	SourceConfig   map[string]any `bun:"source_config,type:jsonb,notnull,default:'{}'::jsonb" json:"sourceConfig"`
	Status         Status         `bun:"status,notnull" json:"status"`
	Checkpoint     Checkpoint     `bun:"checkpoint,type:jsonb,notnull,default:'{}'::jsonb" json:"checkpoint"`
	Counters       Counters       `bun:"counters,type:jsonb,notnull,default:'{}'::jsonb" json:"counters"`
	Priority       int            `bun:"priority,notnull,default:0" json:"priority"`
	LastError      string         `bun:"last_error" json:"lastError,omitempty"`
	CreatedAt      time.Time      `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt      time.Time      `bun:"updated_at,notnull,default:now()" json:"updatedAt"`
	HeartbeatAt    *time.Time     `bun:"heartbeat_at" json:"heartbeatAt,omitempty"`
	FinishedAt     *time.Time     `bun:"finished_at" json:"finishedAt,omitempty"`
}

// NextBatchID returns the batch id the Coordinator should start pulling from.
func (j *Job) NextBatchID() int {
	return j.Checkpoint.LastBatchID + 1
}

// HasNoWork reports whether the job's counters show zero work was ever
// loaded, used by the Coordinator to classify loader-exhaustion as fatal.
func (c Counters) HasNoWork() bool {
	return c.DocsSeen == 0 && c.ChunksSeen == 0 && c.ChunksProcessed == 0
}
