// Package sweeper periodically removes verification requests that can no longer be used.
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Store is the part of the verification repository the sweeper needs.
type Store interface {
	DeleteStale(ctx context.Context, createdBefore, confirmedBefore time.Time) (int64, error)
}

// Job deletes requests that are past the outstanding window and were never confirmed,
// or were confirmed longer ago than the validity window.
type Job struct {
	store       Store
	outstanding time.Duration
	validity    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewJob(store Store, outstanding, validity time.Duration, logger *zap.Logger) *Job {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		store:       store,
		outstanding: outstanding,
		validity:    validity,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (j *Job) Name() string { return "verification-sweeper" }

// Run performs one sweep and returns the number of rows removed.
func (j *Job) Run(ctx context.Context) (int64, error) {
	now := j.now()
	n, err := j.store.DeleteStale(ctx, now.Add(-j.outstanding), now.Add(-j.validity))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("stale verification requests removed", zap.Int64("count", n))
	}
	return n, nil
}

// Scheduler runs a Job on a five-field cron spec or a descriptor such as "@every 1m".
// Overlapping runs are skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser)),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Add registers job under spec. Returns the cron parse error for an invalid spec.
func (s *Scheduler) Add(job *Job, spec string) error {
	logger := s.logger.With(zap.String("job", job.Name()), zap.String("spec", spec))
	if _, err := s.cron.AddFunc(spec, s.wrap(job, logger)); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	logger.Info("job scheduled")
	return nil
}

func (s *Scheduler) Start(ctx context.Context) {
	if ctx != nil {
		s.ctx = ctx
	}
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) wrap(job *Job, logger *zap.Logger) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			logger.Info("job skipped: still running")
			return
		}
		defer running.Store(false)

		start := time.Now()
		if _, err := job.Run(s.ctx); err != nil {
			logger.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			return
		}
		logger.Debug("job finished", zap.Duration("duration", time.Since(start)))
	}
}
