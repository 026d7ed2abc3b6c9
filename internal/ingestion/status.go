package ingestion

import (
	"context"

	"github.com/emergent-company/emergent/pkg/apperror"
)

// StatusView is the Composed Status View returned by Service.Status
// (spec §4.11): a read model over the job record, the four phase rows, and
// the on-disk index-readiness flag.
type StatusView struct {
	JobID           string                 `json:"jobId"`
	KBID            string                 `json:"kbId"`
	OverallStatus   Status                 `json:"overallStatus"`
	CurrentPhase    PhaseName              `json:"currentPhase"`
	OverallProgress float64                `json:"overallProgress"`
	IndexReady      bool                   `json:"indexReady"`
	Phases          map[PhaseName]PhaseView `json:"phases"`
	Counters        Counters               `json:"counters"`
	LastError       string                 `json:"lastError,omitempty"`
}

// PhaseView is the per-phase slice of the composed view.
type PhaseView struct {
	Status      PhaseStatus `json:"status"`
	ProgressPct float64     `json:"progressPct"`
}

// ComposeStatus builds the StatusView for kbID's latest job, implementing the
// exact precedence table in spec §4.11. Grounded on the host's
// status_query_service.py, the authoritative status-composition module (the
// older core/phase.py precedence order was superseded and is not followed).
func ComposeStatus(ctx context.Context, store Store, layout Layout, kbID string) (*StatusView, error) {
	job, err := store.GetLatestJob(ctx, kbID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperror.NewNotFound("ingestion job", kbID)
	}

	phaseRows, err := store.GetAllPhaseStatuses(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	indexReady := layout.IndexReady()

	view := &StatusView{
		JobID:      job.ID.String(),
		KBID:       kbID,
		IndexReady: indexReady,
		Counters:   job.Counters,
		LastError:  job.LastError,
		Phases:     make(map[PhaseName]PhaseView, len(CanonicalPhases)),
	}

	allCompleted := true
	anyFailed, anyPaused, anyRunning, anyStarted := false, false, false, false
	var progressSum float64

	for _, name := range CanonicalPhases {
		row, ok := phaseRows[name]
		status := PhaseStatusNotStarted
		progress := 0.0
		if ok {
			status = row.Status
			progress = row.ProgressPct
		}
		view.Phases[name] = PhaseView{Status: status, ProgressPct: progress}
		progressSum += progress

		switch status {
		case PhaseStatusCompleted:
		case PhaseStatusFailed:
			allCompleted = false
			anyFailed = true
			anyStarted = true
		case PhaseStatusPaused:
			allCompleted = false
			anyPaused = true
			anyStarted = true
		case PhaseStatusRunning:
			allCompleted = false
			anyRunning = true
			anyStarted = true
		default:
			allCompleted = false
		}
	}

	switch {
	case indexReady || allCompleted:
		view.OverallStatus = StatusCompleted
		view.OverallProgress = 100
	case anyFailed:
		view.OverallStatus = StatusFailed
	case anyPaused:
		view.OverallStatus = StatusPaused
	case anyRunning:
		view.OverallStatus = StatusRunning
	case anyStarted:
		view.OverallStatus = StatusPending
	default:
		view.OverallStatus = StatusPending
	}

	if view.OverallStatus != StatusCompleted {
		view.OverallProgress = progressSum / float64(len(CanonicalPhases))
	}

	view.CurrentPhase = PhaseIndexing
	for _, name := range CanonicalPhases {
		if view.Phases[name].Status != PhaseStatusCompleted {
			view.CurrentPhase = name
			break
		}
	}

	return view, nil
}
