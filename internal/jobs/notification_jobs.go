package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/service"
	"go.uber.org/zap"
)

const (
	ReminderJobName = "followup-reminders"
	PendingJobName  = "pending-notifications"
	DigestJobName   = "daily-digest"
)

// ReminderSweeper sends follow-up reminders and overdue notices
type ReminderSweeper interface {
	SendDueReminders(ctx context.Context, now time.Time, limit int, dryRun bool) (*service.ReminderCounts, error)
}

// Dispatcher sends scheduled notifications and daily digests
type Dispatcher interface {
	SendPending(ctx context.Context, now time.Time, limit int) (int, error)
	CountPending(ctx context.Context, now time.Time, limit int) (int, error)
	SendDailyDigest(ctx context.Context, now time.Time, dryRun bool) (*service.DigestCounts, error)
}

// Result is what one job run did, or would do on a dry run
type Result struct {
	Job       string                  `json:"job"`
	DryRun    bool                    `json:"dryRun"`
	Reminders *service.ReminderCounts `json:"reminders,omitempty"`
	Digest    *service.DigestCounts   `json:"digest,omitempty"`
	Pending   *int                    `json:"pending,omitempty"`
}

// NotificationJobs binds the notification sweeps to a clock and batch limits
type NotificationJobs struct {
	sweeper      ReminderSweeper
	dispatcher   Dispatcher
	clock        service.Clock
	sweepLimit   int
	pendingLimit int
	logger       *zap.Logger
}

func NewNotificationJobs(sweeper ReminderSweeper, dispatcher Dispatcher, clock service.Clock, cfg *config.JobsConfig, logger *zap.Logger) *NotificationJobs {
	return &NotificationJobs{
		sweeper:      sweeper,
		dispatcher:   dispatcher,
		clock:        clock,
		sweepLimit:   cfg.SweepBatchLimit,
		pendingLimit: cfg.PendingBatchLimit,
		logger:       logger,
	}
}

func (j *NotificationJobs) Reminders(ctx context.Context, dryRun bool) (*Result, error) {
	counts, err := j.sweeper.SendDueReminders(ctx, j.clock.Now(), j.sweepLimit, dryRun)
	if err != nil {
		return nil, err
	}
	j.logger.Info("follow-up reminder sweep finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("reminders", counts.Reminders),
		zap.Int("overdue", counts.Overdue),
		zap.Int("skipped", counts.Skipped),
		zap.Int64("marked_overdue", counts.MarkedOverdue))
	return &Result{Job: ReminderJobName, DryRun: dryRun, Reminders: counts}, nil
}

func (j *NotificationJobs) Pending(ctx context.Context, dryRun bool) (*Result, error) {
	var (
		n   int
		err error
	)
	if dryRun {
		n, err = j.dispatcher.CountPending(ctx, j.clock.Now(), j.pendingLimit)
	} else {
		n, err = j.dispatcher.SendPending(ctx, j.clock.Now(), j.pendingLimit)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Job: PendingJobName, DryRun: dryRun, Pending: &n}, nil
}

func (j *NotificationJobs) Digest(ctx context.Context, dryRun bool) (*Result, error) {
	counts, err := j.dispatcher.SendDailyDigest(ctx, j.clock.Now(), dryRun)
	if err != nil {
		return nil, err
	}
	j.logger.Info("daily digest finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("users", counts.Users),
		zap.Int("sent", counts.Sent),
		zap.Int("empty", counts.Empty))
	return &Result{Job: DigestJobName, DryRun: dryRun, Digest: counts}, nil
}

// Run executes the named job; "all" runs reminders, pending and digest in
// that order and stops at the first failure
func (j *NotificationJobs) Run(ctx context.Context, name string, dryRun bool) ([]*Result, error) {
	runners := map[string]func(context.Context, bool) (*Result, error){
		"reminders": j.Reminders,
		"pending":   j.Pending,
		"digest":    j.Digest,
	}

	order := []string{name}
	if name == "all" {
		order = []string{"reminders", "pending", "digest"}
	}

	results := make([]*Result, 0, len(order))
	for _, n := range order {
		run, ok := runners[n]
		if !ok {
			return nil, fmt.Errorf("unknown job type %q", name)
		}
		res, err := run(ctx, dryRun)
		if err != nil {
			return results, fmt.Errorf("%s: %w", n, err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Register schedules the three jobs with the expressions from cfg
func (j *NotificationJobs) Register(s *Scheduler, cfg *config.JobsConfig) error {
	schedule := []struct {
		name string
		expr string
		run  func(context.Context, bool) (*Result, error)
	}{
		{ReminderJobName, cfg.ReminderCron, j.Reminders},
		{PendingJobName, cfg.PendingCron, j.Pending},
		{DigestJobName, cfg.DigestCron, j.Digest},
	}

	for _, entry := range schedule {
		run := entry.run
		err := s.AddJob(entry.name, entry.expr, func(ctx context.Context) error {
			_, err := run(ctx, false)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
