package jobs

import (
	"context"
	"fmt"
	"time"

	"shelfkeeper-backend/internal/config"
	"shelfkeeper-backend/internal/logger"
	"shelfkeeper-backend/internal/metrics"
	"shelfkeeper-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Email        service.EmailService
	Loan         service.LoanService
	Availability service.AvailabilityService
	Membership   service.MembershipService
	Settings     service.SettingsService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		timeout:  10 * time.Minute,
	}
}

// Config exposes the configuration the scheduler reads cron specs from
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()
	ctx = logger.WithContext(ctx, "job", jobName)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.JobRuns.WithLabelValues(jobName, outcome).Inc()
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReconcileAvailability()
	jr.SendOverdueReminders()
	jr.PurgeStaleMembershipRequests()
}
