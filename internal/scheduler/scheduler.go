package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"stationrent-backend/internal/jobs"
	"stationrent-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Daily jobs fire on the business calendar, with seconds precision
	loc := time.UTC
	if cfg := jobRunner.Config(); cfg != nil {
		loc = cfg.Location()
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	// Payment window reaper
	_, err := s.cron.AddFunc(cfg.ExpirePendingBookings, s.jobs.ExpirePendingBookings)
	if err != nil {
		logger.Error("Failed to register ExpirePendingBookings job", "error", err)
	}

	// Daily jobs
	// Send overdue reminders
	_, err = s.cron.AddFunc(cfg.SendOverdueReminders, s.jobs.SendOverdueReminders)
	if err != nil {
		logger.Error("Failed to register SendOverdueReminders job", "error", err)
	}

	// Report refunds that failed to reach the wallet
	_, err = s.cron.AddFunc(cfg.ReportFailedRefunds, s.jobs.ReportFailedRefunds)
	if err != nil {
		logger.Error("Failed to register ReportFailedRefunds job", "error", err)
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	s.running = true
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true between Start and Stop
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
