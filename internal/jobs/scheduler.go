// Package jobs runs the periodic notification jobs on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/straye-as/enquiry-api/internal/logger"
	"go.uber.org/zap"
)

// Locker hands out named locks shared across replicas
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Job is one unit of scheduled work
type Job func(ctx context.Context) error

// Scheduler manages background jobs using cron scheduling. Cron
// expressions carry a leading seconds field.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	locker  Locker
	lockTTL time.Duration
	timeout time.Duration
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		logger:  logger,
		timeout: 10 * time.Minute,
		jobs:    make(map[string]cron.EntryID),
	}
}

// SetLocker makes every run take the job's lock first, so only one replica
// runs a given job at a time
func (s *Scheduler) SetLocker(locker Locker, ttl time.Duration) {
	s.locker = locker
	s.lockTTL = ttl
	if ttl > 0 {
		s.timeout = ttl
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("starting job scheduler")
	s.cron.Start()
}

// Stop gracefully stops the scheduler. Running jobs will complete.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping job scheduler")
	return s.cron.Stop()
}

// AddJob registers job under name with the given cron expression
func (s *Scheduler) AddJob(name, cronExpr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.RunNow(context.Background(), name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to add job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added scheduled job",
		zap.String("job_name", name),
		zap.String("cron_expr", cronExpr))

	return nil
}

// RunNow runs job once under its lock. It reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	log := logger.WithJob(s.logger, name, uuid.NewString())

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, name, s.lockTTL)
		if err != nil {
			log.Error("failed to take job lock", zap.Error(err))
			return false
		}
		if !ok {
			log.Info("job already running elsewhere, skipping")
			return false
		}
		defer release()
	}

	start := time.Now()
	log.Info("running scheduled job")
	if err := job(ctx); err != nil {
		log.Error("scheduled job failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return true
	}
	log.Info("completed scheduled job", zap.Duration("duration", time.Since(start)))
	return true
}

func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(entryID)
	delete(s.jobs, name)
	return nil
}

// GetJobNames returns the names of all registered jobs.
func (s *Scheduler) GetJobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}
