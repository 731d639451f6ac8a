package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"github.com/straye-as/enquiry-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AssignmentService runs the accept/reject handshake of an admin assignment
type AssignmentService struct {
	enquiryRepo  *repository.EnquiryRepository
	activityRepo *repository.ActivityRepository
	bus          events.Bus
	clock        Clock
	logger       *zap.Logger
	db           *gorm.DB
}

func NewAssignmentService(
	enquiryRepo *repository.EnquiryRepository,
	activityRepo *repository.ActivityRepository,
	bus events.Bus,
	clock Clock,
	logger *zap.Logger,
	db *gorm.DB,
) *AssignmentService {
	return &AssignmentService{
		enquiryRepo:  enquiryRepo,
		activityRepo: activityRepo,
		bus:          bus,
		clock:        clock,
		logger:       logger,
		db:           db,
	}
}

// Accept moves a pending assignment to accepted
func (s *AssignmentService) Accept(ctx context.Context, enquiryID uuid.UUID) (*domain.Enquiry, error) {
	actor, enquiry, err := s.respond(ctx, enquiryID, domain.AssignmentAccepted)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.AssignmentAccepted{
		BaseEvent: events.NewBaseEvent(s.clock.Now()),
		Enquiry:   *enquiry,
		ActorID:   actor.UserID,
	})
	return enquiry, nil
}

// Reject clears the assignee and marks the assignment rejected, returning
// the enquiry to the unassigned pool
func (s *AssignmentService) Reject(ctx context.Context, enquiryID uuid.UUID) (*domain.Enquiry, error) {
	actor, enquiry, err := s.respond(ctx, enquiryID, domain.AssignmentRejected)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(ctx, events.AssignmentRejected{
		BaseEvent: events.NewBaseEvent(s.clock.Now()),
		Enquiry:   *enquiry,
		ActorID:   actor.UserID,
	})
	return enquiry, nil
}

func (s *AssignmentService) respond(ctx context.Context, enquiryID uuid.UUID, outcome domain.AssignmentStatus) (*auth.UserContext, *domain.Enquiry, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, nil, err
	}

	var enquiry *domain.Enquiry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := s.enquiryRepo.WithTx(tx).GetForUpdate(ctx, enquiryID)
		if err != nil {
			return lookupErr(err, "Enquiry")
		}
		if !e.IsAssignedTo(actor.UserID) {
			return permissionDenied("Only the assigned salesperson can respond to this assignment")
		}
		if e.AssignmentStatus == nil || *e.AssignmentStatus != domain.AssignmentPending {
			return newError(KindConflict, "", "This assignment is not awaiting a response")
		}

		subject := "Assignment accepted"
		e.AssignmentStatus = &outcome
		if outcome == domain.AssignmentRejected {
			subject = "Assignment rejected"
			e.AssignedSalesPersonID = nil
		}
		if err := s.enquiryRepo.WithTx(tx).Save(ctx, e); err != nil {
			return internalError("failed to update assignment", err)
		}

		activity := &domain.ActivityLog{
			EnquiryID:    &e.ID,
			ContactID:    e.ContactID,
			ActivityType: domain.ActivityTypeAssignment,
			Subject:      subject,
			Description:  actor.DisplayName + " responded to the assignment",
			UserID:       actor.ActorID(),
			Metadata:     map[string]any{"assignment_status": string(outcome)},
		}
		if err := s.activityRepo.WithTx(tx).Create(ctx, activity); err != nil {
			return internalError("failed to record activity", err)
		}
		enquiry = e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("assignment answered",
		zap.String("enquiry_id", enquiryID.String()),
		zap.String("user_id", actor.UserID.String()),
		zap.String("outcome", string(outcome)))
	return actor, enquiry, nil
}
