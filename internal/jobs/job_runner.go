package jobs

import (
	"time"

	"github.com/patrickmn/go-cache"

	"rentacar-backend/internal/config"
	"rentacar-backend/internal/logger"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	// sent remembers notices already delivered by this process.
	sent *cache.Cache
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email        service.EmailService
	Reservations service.ReservationService
	Customers    repository.CustomerRepository
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		sent:     cache.New(48*time.Hour, time.Hour),
	}
}

// Config exposes the configuration the scheduler reads cron specs from.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllHourlyJobs runs all hourly jobs (for manual execution)
func (jr *JobRunner) RunAllHourlyJobs() {
	jr.CheckOverdueRentals()
	jr.SendPickupReminders()
}
