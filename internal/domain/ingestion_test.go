package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveRunStatus(t *testing.T) {
	tests := []struct {
		name   string
		added  int
		failed int
		want   RunStatus
	}{
		{"all added", 5, 0, RunStatusCompleted},
		{"nothing processed", 0, 0, RunStatusCompleted},
		{"all failed", 0, 5, RunStatusFailed},
		{"mixed", 4, 1, RunStatusPartial},
		{"skips do not fail a run", 0, 0, RunStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveRunStatus(tt.added, tt.failed))
		})
	}
}

func TestIngestionRun_Finalize(t *testing.T) {
	run := &IngestionRun{
		ID:        "run-1",
		Status:    RunStatusRunning,
		StartedAt: time.Now().Add(-time.Minute),
		Processed: 5,
		Added:     4,
		Failed:    1,
	}

	end := time.Now()
	run.Finalize(end)

	assert.Equal(t, RunStatusPartial, run.Status)
	assert.Equal(t, &end, run.FinishedAt)
	assert.InDelta(t, time.Minute, run.Duration(), float64(2*time.Second))
}

func TestIngestionRun_Duration_InFlight(t *testing.T) {
	run := &IngestionRun{StartedAt: time.Now()}
	assert.Zero(t, run.Duration())
}
