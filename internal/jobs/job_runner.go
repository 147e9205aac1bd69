package jobs

import (
	"time"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/config"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/service"
)

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Booking  service.BookingService
	Notifier service.Notifier
	Bookings repository.BookingRepository
	Clock    clock.Clock
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	if services.Clock == nil {
		services.Clock = clock.System()
	}
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the configuration the runner was built with
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

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpirePendingBookings()
	jr.SendOverdueReminders()
	jr.ReportFailedRefunds()
}
