package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/mapper"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReminderNotifier creates the reminder notifications of the sweep. created
// is false when the reminder for that follow-up and day already exists.
type ReminderNotifier interface {
	NotifyFollowUpReminder(ctx context.Context, f *domain.FollowUp, now time.Time, dryRun bool) (created bool, err error)
	NotifyFollowUpOverdue(ctx context.Context, f *domain.FollowUp, now time.Time, dryRun bool) (created bool, err error)
}

// ReminderCounts summarises one reminder sweep
type ReminderCounts struct {
	Reminders     int   `json:"reminders"`
	Overdue       int   `json:"overdue"`
	Skipped       int   `json:"skipped"`
	MarkedOverdue int64 `json:"markedOverdue"`
}

// FollowUpService schedules follow-ups against enquiries. The stored status
// is derived from the schedule on every write and re-derived on every read.
type FollowUpService struct {
	followUpRepo *repository.FollowUpRepository
	enquiryRepo  *repository.EnquiryRepository
	userRepo     *repository.UserRepository
	permissions  PermissionChecker
	notifier     ReminderNotifier
	bus          events.Bus
	clock        Clock
	logger       *zap.Logger
	db           *gorm.DB
}

func NewFollowUpService(
	followUpRepo *repository.FollowUpRepository,
	enquiryRepo *repository.EnquiryRepository,
	userRepo *repository.UserRepository,
	permissions PermissionChecker,
	notifier ReminderNotifier,
	bus events.Bus,
	clock Clock,
	logger *zap.Logger,
	db *gorm.DB,
) *FollowUpService {
	return &FollowUpService{
		followUpRepo: followUpRepo,
		enquiryRepo:  enquiryRepo,
		userRepo:     userRepo,
		permissions:  permissions,
		notifier:     notifier,
		bus:          bus,
		clock:        clock,
		logger:       logger,
		db:           db,
	}
}

func canEditFollowUp(actor *auth.UserContext, f *domain.FollowUp) bool {
	return actor.IsAdmin() || f.CreatedByID == actor.UserID || f.AssignedToID == actor.UserID
}

func canDeleteFollowUp(actor *auth.UserContext, f *domain.FollowUp) bool {
	return actor.IsAdmin() || f.CreatedByID == actor.UserID
}

func canChangeFollowUpStatus(actor *auth.UserContext, f *domain.FollowUp) bool {
	return actor.IsAdmin() || f.AssignedToID == actor.UserID
}

func (s *FollowUpService) toDTO(actor *auth.UserContext, f *domain.FollowUp, now time.Time) domain.FollowUpDTO {
	return mapper.ToFollowUpDTO(f, now, canEditFollowUp(actor, f), canDeleteFollowUp(actor, f))
}

func pastDateError() *Error {
	return newError(KindPastDate, "", MsgPastDate)
}

func (s *FollowUpService) requireActiveUser(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	users := s.userRepo
	if tx != nil {
		users = users.WithTx(tx)
	}
	user, err := users.GetActiveByID(ctx, id)
	if err != nil {
		return internalError("failed to load user", err)
	}
	if user == nil {
		return notFound("User")
	}
	return nil
}

// Create schedules a follow-up on an existing enquiry. The assignee defaults
// to the creator; system callers must name the assignee.
func (s *FollowUpService) Create(ctx context.Context, enquiryID uuid.UUID, req *domain.CreateFollowUpRequest) (*domain.FollowUpDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	creatorID := actor.UserID
	if actor.IsSystem {
		if req.AssignedToID == nil {
			return nil, validationError(CodeRequiredField, "Assignee is required for follow-ups created by the system")
		}
		creatorID = *req.AssignedToID
	}
	if !s.permissions.Can(ctx, actor, domain.ModuleActivities, domain.ActionCreate) {
		return nil, permissionDenied("You do not have permission to create follow-ups")
	}
	if !req.Type.IsValid() {
		return nil, validationError("", fmt.Sprintf("Invalid follow-up type: %s", req.Type))
	}

	enquiry, err := s.enquiryRepo.GetByID(ctx, enquiryID)
	if err != nil {
		return nil, lookupErr(err, "Enquiry")
	}
	if !canAccessEnquiry(actor, enquiry) {
		return nil, permissionDenied("You do not have access to this enquiry")
	}

	assigneeID := creatorID
	if req.AssignedToID != nil {
		assigneeID = *req.AssignedToID
	}
	if err := s.requireActiveUser(ctx, nil, assigneeID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if domain.DeriveFollowUpStatus(req.ScheduledAt, nil, now) != domain.FollowUpPending {
		return nil, pastDateError()
	}

	f := &domain.FollowUp{
		EnquiryID:    enquiry.ID,
		ScheduledAt:  req.ScheduledAt,
		Type:         req.Type,
		Notes:        req.Notes,
		CreatedByID:  creatorID,
		AssignedToID: assigneeID,
	}
	f.ApplyDerivedStatus(now)
	if err := s.followUpRepo.Create(ctx, f); err != nil {
		return nil, internalError("failed to create follow-up", err)
	}
	f.Enquiry = enquiry

	s.logger.Info("follow-up created",
		zap.String("follow_up_id", f.ID.String()),
		zap.String("enquiry_id", enquiry.ID.String()),
		zap.Time("scheduled_at", f.ScheduledAt))
	s.bus.Publish(ctx, events.FollowUpCreated{
		BaseEvent: events.NewBaseEvent(now),
		FollowUp:  *f,
		Enquiry:   *enquiry,
	})

	dto := s.toDTO(actor, f, now)
	return &dto, nil
}

// MarkCompleted completes a follow-up. Completing twice is a no-op.
func (s *FollowUpService) MarkCompleted(ctx context.Context, id uuid.UUID) (*domain.FollowUpDTO, error) {
	return s.UpdateStatus(ctx, id, &domain.UpdateFollowUpStatusRequest{Status: domain.FollowUpCompleted})
}

// UpdateStatus sets a follow-up to completed or back to pending. Reopening
// clears completed_at and re-derives the status from the schedule.
func (s *FollowUpService) UpdateStatus(ctx context.Context, id uuid.UUID, req *domain.UpdateFollowUpStatusRequest) (*domain.FollowUpDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.FollowUpPending && req.Status != domain.FollowUpCompleted {
		return nil, newError(KindInvalidStatus, "", fmt.Sprintf("Invalid follow-up status: %s", req.Status))
	}

	now := s.clock.Now()
	var (
		followUp  *domain.FollowUp
		completed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.followUpRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Follow-up")
		}
		if !canChangeFollowUpStatus(actor, f) {
			return permissionDenied("Only the assignee or an administrator can update this follow-up")
		}
		followUp = f

		changed := false
		switch req.Status {
		case domain.FollowUpCompleted:
			if f.CompletedAt == nil {
				at := now
				f.CompletedAt = &at
				completed = true
				changed = true
			}
		case domain.FollowUpPending:
			if f.CompletedAt != nil {
				f.CompletedAt = nil
				changed = true
			}
		}
		if req.Notes != nil {
			f.Notes = *req.Notes
			changed = true
		}
		before := f.Status
		f.ApplyDerivedStatus(now)
		if !changed && before == f.Status {
			return nil
		}
		if err := s.followUpRepo.WithTx(tx).Save(ctx, f); err != nil {
			return internalError("failed to update follow-up", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completed {
		enquiry, err := s.enquiryRepo.GetByID(ctx, followUp.EnquiryID)
		if err != nil {
			s.logger.Warn("failed to load enquiry of completed follow-up",
				zap.String("follow_up_id", followUp.ID.String()),
				zap.Error(err))
		} else {
			followUp.Enquiry = enquiry
			s.bus.Publish(ctx, events.FollowUpCompleted{
				BaseEvent: events.NewBaseEvent(now),
				FollowUp:  *followUp,
				Enquiry:   *enquiry,
				ActorID:   actor.ActorID(),
			})
		}
	}

	dto := s.toDTO(actor, followUp, now)
	return &dto, nil
}

// Edit changes a follow-up's schedule, type, notes or assignee. A new
// schedule must not be in the past unless the follow-up is completed.
func (s *FollowUpService) Edit(ctx context.Context, id uuid.UUID, req *domain.UpdateFollowUpRequest) (*domain.FollowUpDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var followUp *domain.FollowUp
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.followUpRepo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "Follow-up")
		}
		if !canEditFollowUp(actor, f) {
			return permissionDenied("You cannot edit this follow-up")
		}

		if req.ScheduledAt != nil {
			if f.CompletedAt == nil && domain.DeriveFollowUpStatus(*req.ScheduledAt, nil, now) != domain.FollowUpPending {
				return pastDateError()
			}
			f.ScheduledAt = *req.ScheduledAt
		}
		if req.Type != nil {
			if !req.Type.IsValid() {
				return validationError("", fmt.Sprintf("Invalid follow-up type: %s", *req.Type))
			}
			f.Type = *req.Type
		}
		if req.Notes != nil {
			f.Notes = *req.Notes
		}
		if req.AssignedToID != nil && *req.AssignedToID != f.AssignedToID {
			if err := s.requireActiveUser(ctx, tx, *req.AssignedToID); err != nil {
				return err
			}
			f.AssignedToID = *req.AssignedToID
		}

		f.ApplyDerivedStatus(now)
		if err := s.followUpRepo.WithTx(tx).Save(ctx, f); err != nil {
			return internalError("failed to update follow-up", err)
		}
		followUp = f
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := s.toDTO(actor, followUp, now)
	return &dto, nil
}

// Delete removes a follow-up. Only its creator or an administrator may delete it.
func (s *FollowUpService) Delete(ctx context.Context, id uuid.UUID) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	f, err := s.followUpRepo.GetByID(ctx, id)
	if err != nil {
		return lookupErr(err, "Follow-up")
	}
	if !canDeleteFollowUp(actor, f) {
		return permissionDenied("Only the creator or an administrator can delete this follow-up")
	}
	if err := s.followUpRepo.Delete(ctx, id); err != nil {
		return internalError("failed to delete follow-up", err)
	}
	return nil
}

// List returns the actor's open follow-ups grouped into overdue, today,
// tomorrow and upcoming. Administrators see every follow-up.
func (s *FollowUpService) List(ctx context.Context, filter domain.FollowUpFilter) (*domain.FollowUpBuckets, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !s.permissions.Can(ctx, actor, domain.ModuleActivities, domain.ActionView) {
		return nil, permissionDenied("You do not have permission to view follow-ups")
	}

	v := repository.Visibility{UserID: actor.UserID}
	if actor.IsAdmin() {
		v = repository.SeeAll
	}
	items, err := s.followUpRepo.ListOpen(ctx, filter, v)
	if err != nil {
		return nil, internalError("failed to list follow-ups", err)
	}

	now := s.clock.Now()
	buckets := &domain.FollowUpBuckets{
		Overdue:  []domain.FollowUpDTO{},
		Today:    []domain.FollowUpDTO{},
		Tomorrow: []domain.FollowUpDTO{},
		Upcoming: []domain.FollowUpDTO{},
	}
	for i := range items {
		f := &items[i]
		dto := s.toDTO(actor, f, now)
		switch {
		case f.IsOverdue(now):
			buckets.Overdue = append(buckets.Overdue, dto)
		case f.IsDueToday(now):
			buckets.Today = append(buckets.Today, dto)
		case f.IsDueTomorrow(now):
			buckets.Tomorrow = append(buckets.Tomorrow, dto)
		case f.IsUpcoming(now):
			buckets.Upcoming = append(buckets.Upcoming, dto)
		}
	}
	return buckets, nil
}

// ListByEnquiry returns every follow-up of an enquiry visible to the actor
func (s *FollowUpService) ListByEnquiry(ctx context.Context, enquiryID uuid.UUID) ([]domain.FollowUpDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	enquiry, err := s.enquiryRepo.GetByID(ctx, enquiryID)
	if err != nil {
		return nil, lookupErr(err, "Enquiry")
	}
	if !canAccessEnquiry(actor, enquiry) {
		return nil, permissionDenied("You do not have access to this enquiry")
	}
	items, err := s.followUpRepo.ListByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, internalError("failed to list follow-ups", err)
	}

	now := s.clock.Now()
	dtos := make([]domain.FollowUpDTO, len(items))
	for i := range items {
		items[i].Enquiry = enquiry
		dtos[i] = s.toDTO(actor, &items[i], now)
	}
	return dtos, nil
}

// SendDueReminders refreshes overdue statuses, then asks the notifier for a
// reminder per follow-up due tomorrow and an overdue notice per follow-up
// past due. At most limit follow-ups of each kind are handled per run.
func (s *FollowUpService) SendDueReminders(ctx context.Context, now time.Time, limit int, dryRun bool) (*ReminderCounts, error) {
	counts := &ReminderCounts{}

	if !dryRun {
		marked, err := s.followUpRepo.MarkOverdue(ctx, now)
		if err != nil {
			return nil, internalError("failed to refresh overdue follow-ups", err)
		}
		counts.MarkedOverdue = marked
	}

	tomorrow := domain.StartOfDay(now).AddDate(0, 0, 1)
	due, err := s.followUpRepo.DueBetween(ctx, tomorrow, tomorrow.AddDate(0, 0, 1), limit)
	if err != nil {
		return nil, internalError("failed to list due follow-ups", err)
	}
	for i := range due {
		created, err := s.notifier.NotifyFollowUpReminder(ctx, &due[i], now, dryRun)
		if err != nil {
			s.logger.Error("failed to send follow-up reminder",
				zap.String("follow_up_id", due[i].ID.String()),
				zap.Error(err))
		}
		if created {
			counts.Reminders++
		} else {
			counts.Skipped++
		}
	}

	overdue, err := s.followUpRepo.OverdueAt(ctx, now, limit)
	if err != nil {
		return nil, internalError("failed to list overdue follow-ups", err)
	}
	for i := range overdue {
		created, err := s.notifier.NotifyFollowUpOverdue(ctx, &overdue[i], now, dryRun)
		if err != nil {
			s.logger.Error("failed to send overdue notice",
				zap.String("follow_up_id", overdue[i].ID.String()),
				zap.Error(err))
		}
		if created {
			counts.Overdue++
		} else {
			counts.Skipped++
		}
	}

	s.logger.Info("follow-up reminder sweep finished",
		zap.Int("reminders", counts.Reminders),
		zap.Int("overdue", counts.Overdue),
		zap.Int("skipped", counts.Skipped),
		zap.Int64("marked_overdue", counts.MarkedOverdue),
		zap.Bool("dry_run", dryRun))
	return counts, nil
}
