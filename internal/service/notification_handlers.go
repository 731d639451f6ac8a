package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/events"
	"go.uber.org/zap"
)

// RegisterHandlers subscribes the dispatcher to every lifecycle event that
// produces notifications.
func (s *NotificationService) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.NameEnquiryCreated, events.HandlerFunc(s.onEnquiryCreated))
	bus.Subscribe(events.NameEnquiryStageChanged, events.HandlerFunc(s.onEnquiryStageChanged))
	bus.Subscribe(events.NameEnquiryStatusChanged, events.HandlerFunc(s.onEnquiryStatusChanged))
	bus.Subscribe(events.NameEnquiryAssigned, events.HandlerFunc(s.onEnquiryAssigned))
	bus.Subscribe(events.NameAssignmentAccepted, events.HandlerFunc(s.onAssignmentResponse))
	bus.Subscribe(events.NameAssignmentRejected, events.HandlerFunc(s.onAssignmentResponse))
	bus.Subscribe(events.NameContactAutoCreated, events.HandlerFunc(s.onContactAutoCreated))
	bus.Subscribe(events.NameFollowUpCreated, events.HandlerFunc(s.onFollowUpCreated))
	bus.Subscribe(events.NameFollowUpCompleted, events.HandlerFunc(s.onFollowUpCompleted))
	bus.Subscribe(events.NameUserCreated, events.HandlerFunc(s.onUserCreated))
	bus.Subscribe(events.NameUserRoleChanged, events.HandlerFunc(s.onUserRoleChanged))
	bus.Subscribe(events.NameUserActivationChanged, events.HandlerFunc(s.onUserActivationChanged))
}

func (s *NotificationService) fanOut(ctx context.Context, recipients []uuid.UUID, in NotificationInput) int {
	sent := 0
	for _, id := range recipients {
		in.RecipientID = id
		if s.Notify(ctx, in) {
			sent++
		}
	}
	return sent
}

func enquiryData(e *domain.Enquiry) map[string]any {
	return map[string]any{
		"enquiry_id":   e.ID.String(),
		"contact_name": e.ContactName,
		"phone_number": e.PhoneNumber,
		"company_name": e.CompanyName,
		"stage":        string(e.Stage),
		"status":       string(e.Status),
		"priority":     string(e.Priority),
	}
}

func (s *NotificationService) onEnquiryCreated(ctx context.Context, event events.Event) error {
	ev := event.(events.EnquiryCreated)
	e := &ev.Enquiry

	recipients := s.recipients(ctx, []*uuid.UUID{e.AssignedSalesPersonID}, domain.ManagementRoles)
	n := s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationNewLead,
		Title:   fmt.Sprintf("New Enquiry: %s", e.ContactName),
		Message: fmt.Sprintf("A new enquiry from %s (%s) has been received.", e.ContactName, e.PhoneNumber),
		Source:  domain.EnquiryRef(e.ID),
		Data:    enquiryData(e),
	})
	s.logger.Debug("new enquiry notifications created", zap.String("enquiry_id", e.ID.String()), zap.Int("count", n))
	return nil
}

func (s *NotificationService) onEnquiryStageChanged(ctx context.Context, event events.Event) error {
	ev := event.(events.EnquiryStageChanged)
	e := &ev.Enquiry

	var roles []domain.UserRoleType
	if ev.NewStage.EscalatesToManagers() {
		roles = domain.ManagementRoles
	}
	data := enquiryData(e)
	data["old_stage"] = string(ev.OldStage)
	data["new_stage"] = string(ev.NewStage)
	data["old_stage_label"] = ev.OldStage.Label()
	data["new_stage_label"] = ev.NewStage.Label()

	recipients := s.recipients(ctx, []*uuid.UUID{e.AssignedSalesPersonID, e.CreatedByID}, roles)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:  domain.NotificationLeadStageChange,
		Title: fmt.Sprintf("Enquiry Stage Updated: %s", e.ContactName),
		Message: fmt.Sprintf("The enquiry from %s moved from %s to %s.",
			e.ContactName, ev.OldStage.Label(), ev.NewStage.Label()),
		Source: domain.EnquiryRef(e.ID),
		Data:   data,
	})
	return nil
}

func (s *NotificationService) onEnquiryStatusChanged(ctx context.Context, event events.Event) error {
	ev := event.(events.EnquiryStatusChanged)
	e := &ev.Enquiry

	data := enquiryData(e)
	data["old_status"] = string(ev.OldStatus)
	data["new_status"] = string(ev.NewStatus)

	recipients := s.recipients(ctx, []*uuid.UUID{e.AssignedSalesPersonID, e.CreatedByID}, nil)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:  domain.NotificationLeadStatusChange,
		Title: fmt.Sprintf("Enquiry Status Updated: %s", e.ContactName),
		Message: fmt.Sprintf("The enquiry from %s is now %s.",
			e.ContactName, ev.NewStatus.Label()),
		Source: domain.EnquiryRef(e.ID),
		Data:   data,
	})
	return nil
}

func (s *NotificationService) onEnquiryAssigned(ctx context.Context, event events.Event) error {
	ev := event.(events.EnquiryAssigned)
	e := &ev.Enquiry
	if e.AssignedSalesPersonID == nil {
		return nil
	}

	recipients := s.recipients(ctx, []*uuid.UUID{e.AssignedSalesPersonID}, nil, ev.ActorID)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationLeadAssignment,
		Title:   fmt.Sprintf("Enquiry Assigned: %s", e.ContactName),
		Message: fmt.Sprintf("You have been assigned the enquiry from %s. Please accept or reject it.", e.ContactName),
		Source:  domain.EnquiryRef(e.ID),
		Data:    enquiryData(e),
	})
	return nil
}

func (s *NotificationService) onAssignmentResponse(ctx context.Context, event events.Event) error {
	var (
		e        domain.Enquiry
		actorID  uuid.UUID
		typeName domain.NotificationTypeName
		verb     string
		label    string
	)
	switch ev := event.(type) {
	case events.AssignmentAccepted:
		e, actorID, typeName, verb = ev.Enquiry, ev.ActorID, domain.NotificationEnquiryAccepted, "accepted"
		label = "Accepted"
	case events.AssignmentRejected:
		e, actorID, typeName, verb = ev.Enquiry, ev.ActorID, domain.NotificationEnquiryRejected, "rejected"
		label = "Rejected"
	default:
		return fmt.Errorf("unexpected event %s", event.EventName())
	}

	// Without a known assigner the response goes to management
	var roles []domain.UserRoleType
	if e.AssignedByID == nil {
		roles = domain.ManagementRoles
	}

	responder := "The assigned salesperson"
	if u, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		responder = u.Name
	}

	data := enquiryData(&e)
	data["responder_id"] = actorID.String()
	data["response"] = verb

	recipients := s.recipients(ctx, []*uuid.UUID{e.AssignedByID}, roles, &actorID)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    typeName,
		Title:   fmt.Sprintf("Enquiry Assignment %s: %s", label, e.ContactName),
		Message: fmt.Sprintf("%s %s the enquiry from %s.", responder, verb, e.ContactName),
		Source:  domain.EnquiryRef(e.ID),
		Data:    data,
	})
	return nil
}

func (s *NotificationService) onContactAutoCreated(ctx context.Context, event events.Event) error {
	ev := event.(events.ContactAutoCreated)
	if ev.ActorID == nil {
		return nil
	}

	recipients := s.recipients(ctx, []*uuid.UUID{ev.ActorID}, nil)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationContactAutoCreated,
		Title:   fmt.Sprintf("Contact Created: %s", ev.Contact.FullName),
		Message: fmt.Sprintf("A new contact %s (%s) was created from an enquiry.", ev.Contact.FullName, ev.Contact.PhoneNumber),
		Source:  domain.EnquiryRef(ev.EnquiryID),
		Data: map[string]any{
			"contact_id":   ev.Contact.ID.String(),
			"contact_name": ev.Contact.FullName,
			"phone_number": ev.Contact.PhoneNumber,
		},
	})
	return nil
}

func followUpData(f *domain.FollowUp, e *domain.Enquiry, loc *time.Location) map[string]any {
	return map[string]any{
		"follow_up_id": f.ID.String(),
		"enquiry_id":   f.EnquiryID.String(),
		"contact_name": e.ContactName,
		"type":         string(f.Type),
		"notes":        f.Notes,
		"scheduled_at": f.ScheduledAt.In(loc).Format("January 02, 2006 15:04"),
	}
}

func (s *NotificationService) onFollowUpCreated(ctx context.Context, event events.Event) error {
	ev := event.(events.FollowUpCreated)
	f, e := &ev.FollowUp, &ev.Enquiry
	now := s.clock.Now()

	if f.AssignedToID != f.CreatedByID {
		recipients := s.recipients(ctx, []*uuid.UUID{&f.AssignedToID}, nil)
		s.fanOut(ctx, recipients, NotificationInput{
			Type:    domain.NotificationFollowUpAssigned,
			Title:   fmt.Sprintf("Follow-up Assigned: %s", e.ContactName),
			Message: fmt.Sprintf("A %s follow-up with %s was assigned to you.", f.Type, e.ContactName),
			Source:  domain.FollowUpRef(f.ID),
			Data:    followUpData(f, e, now.Location()),
		})
	}

	// Shares the sweep's dedupe key so the nightly run does not repeat it
	if f.IsDueTomorrow(now) {
		f.Enquiry = e
		if _, err := s.NotifyFollowUpReminder(ctx, f, now, false); err != nil {
			s.logger.Warn("failed to create immediate follow-up reminder",
				zap.String("follow_up_id", f.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (s *NotificationService) onFollowUpCompleted(ctx context.Context, event events.Event) error {
	ev := event.(events.FollowUpCompleted)
	f, e := &ev.FollowUp, &ev.Enquiry

	ids := []*uuid.UUID{}
	if f.CreatedByID != f.AssignedToID {
		ids = append(ids, &f.CreatedByID)
	}
	recipients := s.recipients(ctx, ids, []domain.UserRoleType{domain.RoleManager, domain.RoleAdmin})
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationFollowUpCompleted,
		Title:   fmt.Sprintf("Follow-up Completed: %s", e.ContactName),
		Message: fmt.Sprintf("The %s follow-up with %s has been completed.", f.Type, e.ContactName),
		Source:  domain.FollowUpRef(f.ID),
		Data:    followUpData(f, e, s.clock.Now().Location()),
	})
	return nil
}

func (s *NotificationService) onUserCreated(ctx context.Context, event events.Event) error {
	ev := event.(events.UserCreated)
	u := &ev.User

	recipients := s.recipients(ctx, []*uuid.UUID{&u.ID}, nil)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationUserWelcome,
		Title:   "Welcome to the CRM",
		Message: fmt.Sprintf("Hello %s, your account has been created.", u.Name),
		Source:  domain.UserRef(u.ID),
		Data:    map[string]any{"user_name": u.Name, "email": u.Email},
		// One welcome per user
		DedupeKey: fmt.Sprintf("%s:%s", domain.NotificationUserWelcome, u.ID),
	})
	return nil
}

func (s *NotificationService) roleLabel(ctx context.Context, id *uuid.UUID) string {
	if id == nil {
		return "No Role"
	}
	role, err := s.roleRepo.GetByID(ctx, *id)
	if err != nil {
		return "No Role"
	}
	return role.DisplayName
}

func (s *NotificationService) onUserRoleChanged(ctx context.Context, event events.Event) error {
	ev := event.(events.UserRoleChanged)
	if sameID(ev.OldRoleID, ev.NewRoleID) {
		return nil
	}
	u := &ev.User
	oldLabel := s.roleLabel(ctx, ev.OldRoleID)
	newLabel := s.roleLabel(ctx, ev.NewRoleID)

	recipients := s.recipients(ctx, []*uuid.UUID{&u.ID}, nil)
	s.fanOut(ctx, recipients, NotificationInput{
		Type:    domain.NotificationUserRoleChange,
		Title:   "Your Role Has Been Updated",
		Message: fmt.Sprintf("Your role changed from %s to %s.", oldLabel, newLabel),
		Source:  domain.UserRef(u.ID),
		Data:    map[string]any{"old_role": oldLabel, "new_role": newLabel},
	})
	return nil
}

// Deactivated users are notified even though the active filter would drop them
func (s *NotificationService) onUserActivationChanged(ctx context.Context, event events.Event) error {
	ev := event.(events.UserActivationChanged)
	u := &ev.User

	in := NotificationInput{
		Type:        domain.NotificationUserAccountActivated,
		RecipientID: u.ID,
		Title:       "Your Account Has Been Activated",
		Message:     fmt.Sprintf("Hello %s, your account is active again.", u.Name),
		Source:      domain.UserRef(u.ID),
	}
	if !ev.Active {
		in.Type = domain.NotificationUserAccountDeactivated
		in.Title = "Your Account Has Been Deactivated"
		in.Message = fmt.Sprintf("Hello %s, your account has been deactivated.", u.Name)
	}
	s.Notify(ctx, in)
	return nil
}
