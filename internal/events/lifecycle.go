package events

import (
	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
)

// Event names
const (
	NameEnquiryCreated        = "enquiry.created"
	NameEnquiryStageChanged   = "enquiry.stage_changed"
	NameEnquiryStatusChanged  = "enquiry.status_changed"
	NameEnquiryAssigned       = "enquiry.assigned"
	NameAssignmentAccepted    = "enquiry.assignment_accepted"
	NameAssignmentRejected    = "enquiry.assignment_rejected"
	NameContactAutoCreated    = "contact.auto_created"
	NameFollowUpCreated       = "follow_up.created"
	NameFollowUpCompleted     = "follow_up.completed"
	NameUserCreated           = "user.created"
	NameUserRoleChanged       = "user.role_changed"
	NameUserActivationChanged = "user.activation_changed"
)

// EnquiryCreated is published after a new enquiry is committed.
type EnquiryCreated struct {
	BaseEvent
	Enquiry domain.Enquiry
	ActorID *uuid.UUID
}

func (EnquiryCreated) EventName() string { return NameEnquiryCreated }

// EnquiryStageChanged is published only when the stage actually changed.
type EnquiryStageChanged struct {
	BaseEvent
	Enquiry  domain.Enquiry
	OldStage domain.EnquiryStage
	NewStage domain.EnquiryStage
	ActorID  *uuid.UUID
}

func (EnquiryStageChanged) EventName() string { return NameEnquiryStageChanged }

type EnquiryStatusChanged struct {
	BaseEvent
	Enquiry   domain.Enquiry
	OldStatus domain.EnquiryStatus
	NewStatus domain.EnquiryStatus
	ActorID   *uuid.UUID
}

func (EnquiryStatusChanged) EventName() string { return NameEnquiryStatusChanged }

// EnquiryAssigned is published when an admin changes the assignee.
type EnquiryAssigned struct {
	BaseEvent
	Enquiry            domain.Enquiry
	PreviousAssigneeID *uuid.UUID
	ActorID            *uuid.UUID
}

func (EnquiryAssigned) EventName() string { return NameEnquiryAssigned }

type AssignmentAccepted struct {
	BaseEvent
	Enquiry domain.Enquiry
	ActorID uuid.UUID
}

func (AssignmentAccepted) EventName() string { return NameAssignmentAccepted }

// AssignmentRejected carries the enquiry after the assignee was cleared.
type AssignmentRejected struct {
	BaseEvent
	Enquiry domain.Enquiry
	ActorID uuid.UUID
}

func (AssignmentRejected) EventName() string { return NameAssignmentRejected }

type ContactAutoCreated struct {
	BaseEvent
	Contact   domain.Contact
	EnquiryID uuid.UUID
	ActorID   *uuid.UUID
}

func (ContactAutoCreated) EventName() string { return NameContactAutoCreated }

type FollowUpCreated struct {
	BaseEvent
	FollowUp domain.FollowUp
	Enquiry  domain.Enquiry
}

func (FollowUpCreated) EventName() string { return NameFollowUpCreated }

type FollowUpCompleted struct {
	BaseEvent
	FollowUp domain.FollowUp
	Enquiry  domain.Enquiry
	ActorID  *uuid.UUID
}

func (FollowUpCompleted) EventName() string { return NameFollowUpCompleted }

type UserCreated struct {
	BaseEvent
	User domain.User
}

func (UserCreated) EventName() string { return NameUserCreated }

type UserRoleChanged struct {
	BaseEvent
	User      domain.User
	OldRoleID *uuid.UUID
	NewRoleID *uuid.UUID
}

func (UserRoleChanged) EventName() string { return NameUserRoleChanged }

type UserActivationChanged struct {
	BaseEvent
	User   domain.User
	Active bool
}

func (UserActivationChanged) EventName() string { return NameUserActivationChanged }
