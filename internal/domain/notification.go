package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NotificationCategory groups notification types for preference filtering
type NotificationCategory string

const (
	CategoryFollowUp       NotificationCategory = "FOLLOW_UP"
	CategoryLeadManagement NotificationCategory = "LEAD_MANAGEMENT"
	CategoryUserManagement NotificationCategory = "USER_MANAGEMENT"
	CategorySystem         NotificationCategory = "SYSTEM"
	CategoryWorkflow       NotificationCategory = "WORKFLOW"
)

// NotificationPriority ranks notification urgency
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
	NotificationPriorityUrgent NotificationPriority = "URGENT"
)

// NotificationTypeName identifies an entry of the notification taxonomy
type NotificationTypeName string

const (
	NotificationFollowUpReminder       NotificationTypeName = "FOLLOWUP_REMINDER"
	NotificationFollowUpOverdue        NotificationTypeName = "FOLLOWUP_OVERDUE"
	NotificationFollowUpAssigned       NotificationTypeName = "FOLLOWUP_ASSIGNED"
	NotificationFollowUpCompleted      NotificationTypeName = "FOLLOWUP_COMPLETED"
	NotificationNewLead                NotificationTypeName = "NEW_LEAD"
	NotificationLeadStageChange        NotificationTypeName = "LEAD_STAGE_CHANGE"
	NotificationLeadAssignment         NotificationTypeName = "LEAD_ASSIGNMENT"
	NotificationLeadStatusChange       NotificationTypeName = "LEAD_STATUS_CHANGE"
	NotificationUserWelcome            NotificationTypeName = "USER_WELCOME"
	NotificationUserRoleChange         NotificationTypeName = "USER_ROLE_CHANGE"
	NotificationUserAccountActivated   NotificationTypeName = "USER_ACCOUNT_ACTIVATED"
	NotificationUserAccountDeactivated NotificationTypeName = "USER_ACCOUNT_DEACTIVATED"
	NotificationDailyDigest            NotificationTypeName = "DAILY_DIGEST"
	NotificationWeeklyDigest           NotificationTypeName = "WEEKLY_DIGEST"
	NotificationSystemAlert            NotificationTypeName = "SYSTEM_ALERT"
	NotificationEnquiryAccepted        NotificationTypeName = "ENQUIRY_ACCEPTED"
	NotificationEnquiryRejected        NotificationTypeName = "ENQUIRY_REJECTED"
	NotificationContactAutoCreated     NotificationTypeName = "CONTACT_AUTO_CREATED"
)

// NotificationType is one entry of the notification taxonomy
type NotificationType struct {
	BaseModel
	Name          NotificationTypeName `gorm:"type:varchar(50);not null;uniqueIndex"`
	Description   string               `gorm:"type:text"`
	Category      NotificationCategory `gorm:"type:varchar(30);not null"`
	Priority      NotificationPriority `gorm:"type:varchar(10);not null;default:'MEDIUM'"`
	EmailTemplate string               `gorm:"type:varchar(100)"`
	SendEmail     bool                 `gorm:"not null"`
	SendInApp     bool                 `gorm:"not null"`
	IsActive      bool                 `gorm:"not null"`
}

func (NotificationType) TableName() string {
	return "notification_types"
}

// NotificationStatus is the delivery state of a notification
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusRead    NotificationStatus = "read"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// UnreadNotificationStatuses are the statuses counted as unread
var UnreadNotificationStatuses = []NotificationStatus{NotificationStatusPending, NotificationStatusSent}

// SourceKind names the entity a notification refers to
type SourceKind string

const (
	SourceEnquiry  SourceKind = "enquiry"
	SourceFollowUp SourceKind = "follow_up"
	SourceUser     SourceKind = "user"
)

func (k SourceKind) IsValid() bool {
	return k == SourceEnquiry || k == SourceFollowUp || k == SourceUser
}

// SourceRef is a typed reference to the entity that triggered a notification
type SourceRef struct {
	Kind SourceKind
	ID   uuid.UUID
}

// EnquiryRef references an enquiry
func EnquiryRef(id uuid.UUID) *SourceRef {
	return &SourceRef{Kind: SourceEnquiry, ID: id}
}

// FollowUpRef references a follow-up
func FollowUpRef(id uuid.UUID) *SourceRef {
	return &SourceRef{Kind: SourceFollowUp, ID: id}
}

// UserRef references a user
func UserRef(id uuid.UUID) *SourceRef {
	return &SourceRef{Kind: SourceUser, ID: id}
}

// Notification is an addressed message for a single recipient
type Notification struct {
	BaseModel
	TypeID       uuid.UUID          `gorm:"type:uuid;not null;column:type_id"`
	Type         *NotificationType  `gorm:"foreignKey:TypeID"`
	RecipientID  uuid.UUID          `gorm:"type:uuid;not null;column:recipient_id;index"`
	Recipient    *User              `gorm:"foreignKey:RecipientID"`
	Title        string             `gorm:"type:varchar(255);not null"`
	Message      string             `gorm:"type:text;not null"`
	SourceKind   SourceKind         `gorm:"type:varchar(20);column:source_kind"`
	SourceID     *uuid.UUID         `gorm:"type:uuid;column:source_id"`
	Status       NotificationStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ScheduledFor time.Time          `gorm:"not null;index"`
	SentAt       *time.Time
	ReadAt       *time.Time
	EmailSent    bool `gorm:"not null;default:false"`
	EmailSentAt  *time.Time
	EmailError   string            `gorm:"type:text"`
	Data         datatypes.JSONMap `gorm:"type:json"`
	DedupeKey    *string           `gorm:"type:varchar(255);uniqueIndex"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Source returns the typed source reference, or nil when the notification has none
func (n *Notification) Source() *SourceRef {
	if n.SourceID == nil || n.SourceKind == "" {
		return nil
	}
	return &SourceRef{Kind: n.SourceKind, ID: *n.SourceID}
}

// IsUnread reports whether the recipient has not yet read the notification
func (n *Notification) IsUnread() bool {
	return n.Status == NotificationStatusPending || n.Status == NotificationStatusSent
}

// NotificationPreference holds a user's opt-in flags per category and channel
type NotificationPreference struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	EmailFollowUps    bool      `gorm:"not null"`
	EmailLeadChanges  bool      `gorm:"not null"`
	EmailAssignments  bool      `gorm:"not null"`
	EmailUserChanges  bool      `gorm:"not null"`
	EmailSystemAlerts bool      `gorm:"not null;default:false"`
	AppFollowUps      bool      `gorm:"not null"`
	AppLeadChanges    bool      `gorm:"not null"`
	AppAssignments    bool      `gorm:"not null"`
	AppUserChanges    bool      `gorm:"not null"`
	AppSystemAlerts   bool      `gorm:"not null"`
	DailyDigest       bool      `gorm:"not null"`
	WeeklyDigest      bool      `gorm:"not null;default:false"`
}

func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultNotificationPreference returns the preference set applied to new users
func DefaultNotificationPreference(userID uuid.UUID) *NotificationPreference {
	return &NotificationPreference{
		UserID:            userID,
		EmailFollowUps:    true,
		EmailLeadChanges:  true,
		EmailAssignments:  true,
		EmailUserChanges:  true,
		EmailSystemAlerts: false,
		AppFollowUps:      true,
		AppLeadChanges:    true,
		AppAssignments:    true,
		AppUserChanges:    true,
		AppSystemAlerts:   true,
		DailyDigest:       true,
		WeeklyDigest:      false,
	}
}

// EmailEnabled reports whether email delivery is enabled for the category.
// Assignment-type notifications are governed by the assignment flag.
func (p *NotificationPreference) EmailEnabled(category NotificationCategory, name NotificationTypeName) bool {
	if name == NotificationLeadAssignment || name == NotificationFollowUpAssigned {
		return p.EmailAssignments
	}
	switch category {
	case CategoryFollowUp:
		return p.EmailFollowUps
	case CategoryLeadManagement, CategoryWorkflow:
		return p.EmailLeadChanges
	case CategoryUserManagement:
		return p.EmailUserChanges
	case CategorySystem:
		return p.EmailSystemAlerts
	default:
		return false
	}
}

// NotificationAction is an entry kind in the notification audit trail
type NotificationAction string

const (
	NotificationActionCreated NotificationAction = "created"
	NotificationActionSent    NotificationAction = "sent"
	NotificationActionRead    NotificationAction = "read"
	NotificationActionFailed  NotificationAction = "failed"
)

// NotificationLog is an audit entry for a notification
type NotificationLog struct {
	BaseModel
	NotificationID uuid.UUID          `gorm:"type:uuid;not null;index"`
	Action         NotificationAction `gorm:"type:varchar(20);not null"`
	Details        string             `gorm:"type:text"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
