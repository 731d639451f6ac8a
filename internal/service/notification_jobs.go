package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DigestCounts reports the outcome of a daily digest run
type DigestCounts struct {
	Users   int `json:"users"`
	Sent    int `json:"sent"`
	Empty   int `json:"empty"`
	Skipped int `json:"skipped"`
}

// dedupeKey builds TYPE:id:YYYY-MM-DD with the date taken in now's location
func dedupeKey(t domain.NotificationTypeName, id uuid.UUID, now time.Time) string {
	return fmt.Sprintf("%s:%s:%s", t, id, now.Format("2006-01-02"))
}

func (s *NotificationService) notifyOnce(ctx context.Context, in NotificationInput, dryRun bool) (bool, error) {
	if dryRun {
		exists, err := s.notificationRepo.ExistsByDedupeKey(ctx, in.DedupeKey)
		if err != nil {
			return false, err
		}
		return !exists, nil
	}
	n, created, err := s.Create(ctx, in)
	if err != nil || !created {
		return false, err
	}
	s.Send(ctx, n)
	return true, nil
}

func reminderEnquiry(f *domain.FollowUp) *domain.Enquiry {
	if f.Enquiry != nil {
		return f.Enquiry
	}
	return &domain.Enquiry{}
}

// NotifyFollowUpReminder sends the day-before reminder for f, at most once per day
func (s *NotificationService) NotifyFollowUpReminder(ctx context.Context, f *domain.FollowUp, now time.Time, dryRun bool) (bool, error) {
	e := reminderEnquiry(f)
	return s.notifyOnce(ctx, NotificationInput{
		Type:        domain.NotificationFollowUpReminder,
		RecipientID: f.AssignedToID,
		Title:       fmt.Sprintf("Follow-up Reminder: %s", e.ContactName),
		Message: fmt.Sprintf("You have a %s follow-up with %s scheduled for %s.",
			f.Type, e.ContactName, f.ScheduledAt.In(now.Location()).Format("January 02, 2006 15:04")),
		Source:    domain.FollowUpRef(f.ID),
		Data:      followUpData(f, e, now.Location()),
		DedupeKey: dedupeKey(domain.NotificationFollowUpReminder, f.ID, now),
	}, dryRun)
}

// NotifyFollowUpOverdue alerts the assignee of a missed follow-up, at most once per day
func (s *NotificationService) NotifyFollowUpOverdue(ctx context.Context, f *domain.FollowUp, now time.Time, dryRun bool) (bool, error) {
	e := reminderEnquiry(f)
	days := f.DaysOverdue(now)
	data := followUpData(f, e, now.Location())
	data["days_overdue"] = days

	return s.notifyOnce(ctx, NotificationInput{
		Type:        domain.NotificationFollowUpOverdue,
		RecipientID: f.AssignedToID,
		Title:       fmt.Sprintf("Overdue Follow-up: %s", e.ContactName),
		Message: fmt.Sprintf("Your %s follow-up with %s is %d day(s) overdue.",
			f.Type, e.ContactName, days),
		Source:    domain.FollowUpRef(f.ID),
		Data:      data,
		DedupeKey: dedupeKey(domain.NotificationFollowUpOverdue, f.ID, now),
	}, dryRun)
}

// CountPending reports how many notifications SendPending would deliver
func (s *NotificationService) CountPending(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.notificationRepo.DuePending(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return len(due), nil
}

// SendPending delivers notifications whose scheduled time has come. It
// returns the number handed to delivery.
func (s *NotificationService) SendPending(ctx context.Context, now time.Time, limit int) (int, error) {
	due, err := s.notificationRepo.DuePending(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	var delivered atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range due {
		id := due[i].ID
		g.Go(func() error {
			if s.queue != nil {
				if err := s.queue.EnqueueDelivery(gctx, id); err == nil {
					delivered.Add(1)
					return nil
				}
			}
			if err := s.Deliver(gctx, id); err != nil {
				s.logger.Error("failed to deliver pending notification",
					zap.String("notification_id", id.String()),
					zap.Error(err))
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(delivered.Load()), err
	}

	s.logger.Info("pending notifications processed",
		zap.Int("due", len(due)),
		zap.Int64("delivered", delivered.Load()))
	return int(delivered.Load()), nil
}

func visibilityOf(u *domain.User) repository.Visibility {
	if u.IsSuperuser {
		return repository.SeeAll
	}
	for _, r := range domain.ManagementRoles {
		if u.RoleName() == r {
			return repository.SeeAll
		}
	}
	return repository.Visibility{UserID: u.ID}
}

// SendDailyDigest sends each opted-in active user a summary of today's new
// enquiries, follow-ups due today and overdue follow-ups they can see.
// Users with nothing to report get no digest.
func (s *NotificationService) SendDailyDigest(ctx context.Context, now time.Time, dryRun bool) (*DigestCounts, error) {
	userIDs, err := s.prefRepo.UsersWithDailyDigest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list digest recipients: %w", err)
	}

	dayStart := domain.StartOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)
	var sent, empty, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, id := range userIDs {
		g.Go(func() error {
			created, hasContent, err := s.digestFor(gctx, id, now, dayStart, dayEnd, dryRun)
			switch {
			case err != nil:
				skipped.Add(1)
				s.logger.Error("failed to build daily digest", zap.String("user_id", id.String()), zap.Error(err))
			case !hasContent:
				empty.Add(1)
			case created:
				sent.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := &DigestCounts{
		Users:   len(userIDs),
		Sent:    int(sent.Load()),
		Empty:   int(empty.Load()),
		Skipped: int(skipped.Load()),
	}
	s.logger.Info("daily digest run finished",
		zap.Bool("dry_run", dryRun),
		zap.Int("users", counts.Users),
		zap.Int("sent", counts.Sent),
		zap.Int("empty", counts.Empty),
		zap.Int("skipped", counts.Skipped))
	return counts, nil
}

func (s *NotificationService) digestFor(ctx context.Context, userID uuid.UUID, now, dayStart, dayEnd time.Time, dryRun bool) (created, hasContent bool, err error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, false, err
	}
	if u.Email == "" {
		return false, false, nil
	}
	v := visibilityOf(u)

	newEnquiries, err := s.enquiryRepo.CountCreatedBetween(ctx, v, dayStart, dayEnd)
	if err != nil {
		return false, false, err
	}
	dueToday, err := s.followUpRepo.CountDueBetween(ctx, v, dayStart, dayEnd)
	if err != nil {
		return false, false, err
	}
	overdue, err := s.followUpRepo.CountOverdue(ctx, v, now)
	if err != nil {
		return false, false, err
	}
	if newEnquiries == 0 && dueToday == 0 && overdue == 0 {
		return false, false, nil
	}

	created, err = s.notifyOnce(ctx, NotificationInput{
		Type:        domain.NotificationDailyDigest,
		RecipientID: u.ID,
		Title:       fmt.Sprintf("Daily CRM Summary - %s", now.Format("January 02, 2006")),
		Message: fmt.Sprintf("Today: %d new enquiries, %d follow-ups due, %d overdue follow-ups.",
			newEnquiries, dueToday, overdue),
		Source: domain.UserRef(u.ID),
		Data: map[string]any{
			"new_enquiries":      newEnquiries,
			"follow_ups_today":   dueToday,
			"overdue_follow_ups": overdue,
		},
		DedupeKey: dedupeKey(domain.NotificationDailyDigest, u.ID, now),
	}, dryRun)
	return created, true, err
}
