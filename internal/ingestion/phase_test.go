package ingestion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDefaultPhaseRows(t *testing.T) {
	jobID := uuid.New()
	rows := defaultPhaseRows(jobID)

	assert.Len(t, rows, len(CanonicalPhases))
	for _, name := range CanonicalPhases {
		row, ok := rows[name]
		assert.True(t, ok, "missing row for phase %s", name)
		assert.Equal(t, jobID, row.JobID)
		assert.Equal(t, name, row.PhaseName)
		assert.Equal(t, PhaseStatusNotStarted, row.Status)
		assert.Zero(t, row.ProgressPct)
	}
}

func TestCanonicalPhasesOrder(t *testing.T) {
	assert.Equal(t, []PhaseName{PhaseLoading, PhaseChunking, PhaseEmbedding, PhaseIndexing}, CanonicalPhases)
}
