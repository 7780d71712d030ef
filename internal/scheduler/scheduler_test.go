package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/jobs"
)

func TestNewScheduler(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		CheckOverdueRentals: "0 0 * * * *",
		SendPickupReminders: "0 30 * * * *",
	}}

	s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Entries())

	s.Start()
	s.Stop()
}

func TestNewScheduler_BadSpec(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		CheckOverdueRentals: "every hour",
		SendPickupReminders: "0 30 * * * *",
	}}

	_, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
	assert.Error(t, err)
}
