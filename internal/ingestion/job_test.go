package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		target  Status
		want    bool
	}{
		{"pending to running", StatusPending, StatusRunning, true},
		{"pending to canceled", StatusPending, StatusCanceled, true},
		{"pending to completed is illegal", StatusPending, StatusCompleted, false},
		{"running to paused", StatusRunning, StatusPaused, true},
		{"running to completed", StatusRunning, StatusCompleted, true},
		{"running to failed", StatusRunning, StatusFailed, true},
		{"running to canceled", StatusRunning, StatusCanceled, true},
		{"running to pending is illegal", StatusRunning, StatusPending, false},
		{"paused to running", StatusPaused, StatusRunning, true},
		{"paused to canceled", StatusPaused, StatusCanceled, true},
		{"paused to completed is illegal", StatusPaused, StatusCompleted, false},
		{"canceled to not_started", StatusCanceled, StatusNotStarted, true},
		{"canceled to running is illegal", StatusCanceled, StatusRunning, false},
		{"completed is terminal, no transitions out", StatusCompleted, StatusRunning, false},
		{"failed is terminal, no transitions out", StatusFailed, StatusRunning, false},
		{"unknown current status", Status("bogus"), StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.current, tt.target))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusPaused, false},
		{StatusNotStarted, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.IsTerminal())
		})
	}
}

func TestCountersHasNoWork(t *testing.T) {
	tests := []struct {
		name string
		c    Counters
		want bool
	}{
		{"all zero", Counters{}, true},
		{"docs seen", Counters{DocsSeen: 1}, false},
		{"chunks seen", Counters{ChunksSeen: 1}, false},
		{"chunks processed", Counters{ChunksProcessed: 1}, false},
		{"skipped alone does not count as work", Counters{ChunksSkipped: 5}, true},
		{"error alone does not count as work", Counters{ChunksError: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.HasNoWork())
		})
	}
}

func TestJobNextBatchID(t *testing.T) {
	j := &Job{Checkpoint: Checkpoint{LastBatchID: -1}}
	assert.Equal(t, 0, j.NextBatchID())

	j.Checkpoint.LastBatchID = 4
	assert.Equal(t, 5, j.NextBatchID())
}
