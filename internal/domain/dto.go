package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type EnquiryDTO struct {
	ID                    uuid.UUID         `json:"id"`
	ContactID             *uuid.UUID        `json:"contactId,omitempty"`
	ContactName           string            `json:"contactName"`
	PhoneNumber           string            `json:"phoneNumber"`
	Email                 string            `json:"email,omitempty"`
	CompanyName           string            `json:"companyName,omitempty"`
	Country               string            `json:"country,omitempty"`
	Priority              EnquiryPriority   `json:"priority"`
	Notes                 string            `json:"notes,omitempty"`
	NextAction            string            `json:"nextAction,omitempty"`
	LeadSourceID          *uuid.UUID        `json:"leadSourceId,omitempty"`
	CategoryID            *uuid.UUID        `json:"categoryId,omitempty"`
	SubcategoryID         *uuid.UUID        `json:"subcategoryId,omitempty"`
	AssignedSalesPersonID *uuid.UUID        `json:"assignedSalesPersonId,omitempty"`
	CreatedByID           *uuid.UUID        `json:"createdById,omitempty"`
	Stage                 EnquiryStage      `json:"stage"`
	StageLabel            string            `json:"stageLabel"`
	Status                EnquiryStatus     `json:"status"`
	IsLocked              bool              `json:"isLocked"`
	AssignmentStatus      *AssignmentStatus `json:"assignmentStatus,omitempty"`
	ProformaInvoiceNumber string            `json:"proformaInvoiceNumber,omitempty"`
	InvoiceNumber         string            `json:"invoiceNumber,omitempty"`
	ReasonID              *uuid.UUID        `json:"reasonId,omitempty"`
	ReasonName            string            `json:"reasonName,omitempty"`
	CreatedAt             string            `json:"createdAt"` // ISO 8601
	UpdatedAt             string            `json:"updatedAt"` // ISO 8601
}

// StageResult is the structured outcome of a stage update
type StageResult struct {
	Success   bool          `json:"success"`
	Stage     EnquiryStage  `json:"stage,omitempty"`
	Status    EnquiryStatus `json:"status,omitempty"`
	IsLocked  bool          `json:"isLocked"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
}

// StatusResult is the structured outcome of a status update
type StatusResult struct {
	Success   bool          `json:"success"`
	Status    EnquiryStatus `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"errorCode,omitempty"`
}

// ActionResult is the structured outcome of operations without a payload
type ActionResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// StageColumnDTO is one column of the enquiry stage board
type StageColumnDTO struct {
	Stage     EnquiryStage `json:"stage"`
	Label     string       `json:"label"`
	Count     int          `json:"count"`
	Enquiries []EnquiryDTO `json:"enquiries"`
}

type ContactDTO struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"fullName"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       string     `json:"email,omitempty"`
	AccountID   *uuid.UUID `json:"accountId,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

type FollowUpDTO struct {
	ID           uuid.UUID      `json:"id"`
	EnquiryID    uuid.UUID      `json:"enquiryId"`
	ContactName  string         `json:"contactName,omitempty"`
	ScheduledAt  string         `json:"scheduledAt"` // ISO 8601
	Type         FollowUpType   `json:"type"`
	Notes        string         `json:"notes,omitempty"`
	Status       FollowUpStatus `json:"status"`
	CompletedAt  *string        `json:"completedAt,omitempty"`
	CreatedByID  uuid.UUID      `json:"createdById"`
	AssignedToID uuid.UUID      `json:"assignedToId"`
	IsOverdue    bool           `json:"isOverdue"`
	IsDueToday   bool           `json:"isDueToday"`
	IsUpcoming   bool           `json:"isUpcoming"`
	CanEdit      bool           `json:"canEdit"`
	CanDelete    bool           `json:"canDelete"`
}

// FollowUpBuckets groups open follow-ups by due date
type FollowUpBuckets struct {
	Overdue  []FollowUpDTO `json:"overdue"`
	Today    []FollowUpDTO `json:"today"`
	Tomorrow []FollowUpDTO `json:"tomorrow"`
	Upcoming []FollowUpDTO `json:"upcoming"`
}

type NotificationDTO struct {
	ID          uuid.UUID            `json:"id"`
	Type        NotificationTypeName `json:"type"`
	Category    NotificationCategory `json:"category,omitempty"`
	Priority    NotificationPriority `json:"priority,omitempty"`
	Title       string               `json:"title"`
	Message     string               `json:"message"`
	Status      NotificationStatus   `json:"status"`
	Read        bool                 `json:"read"`
	SourceKind  SourceKind           `json:"sourceKind,omitempty"`
	SourceID    *uuid.UUID           `json:"sourceId,omitempty"`
	Data        map[string]any       `json:"data,omitempty"`
	EmailSent   bool                 `json:"emailSent"`
	CreatedAt   string               `json:"createdAt"` // ISO 8601
	ReadAt      *string              `json:"readAt,omitempty"`
	ScheduledAt string               `json:"scheduledFor"`
}

type NotificationTypeDTO struct {
	Name          NotificationTypeName `json:"name"`
	Description   string               `json:"description,omitempty"`
	Category      NotificationCategory `json:"category"`
	Priority      NotificationPriority `json:"priority"`
	EmailTemplate string               `json:"emailTemplate,omitempty"`
	SendEmail     bool                 `json:"sendEmail"`
	SendInApp     bool                 `json:"sendInApp"`
	IsActive      bool                 `json:"isActive"`
}

type NotificationPreferenceDTO struct {
	EmailFollowUps    bool `json:"emailFollowUps"`
	EmailLeadChanges  bool `json:"emailLeadChanges"`
	EmailAssignments  bool `json:"emailAssignments"`
	EmailUserChanges  bool `json:"emailUserChanges"`
	EmailSystemAlerts bool `json:"emailSystemAlerts"`
	AppFollowUps      bool `json:"appFollowUps"`
	AppLeadChanges    bool `json:"appLeadChanges"`
	AppAssignments    bool `json:"appAssignments"`
	AppUserChanges    bool `json:"appUserChanges"`
	AppSystemAlerts   bool `json:"appSystemAlerts"`
	DailyDigest       bool `json:"dailyDigest"`
	WeeklyDigest      bool `json:"weeklyDigest"`
}

type ReasonDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
}

type LeadSourceDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

type CategoryDTO struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"isActive"`
}

type SubcategoryDTO struct {
	ID         uuid.UUID `json:"id"`
	CategoryID uuid.UUID `json:"categoryId"`
	Name       string    `json:"name"`
}

type UserDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        UserRoleType `json:"role,omitempty"`
	RoleName    string       `json:"roleName,omitempty"`
	IsActive    bool         `json:"isActive"`
	IsSuperuser bool         `json:"isSuperuser"`
	CreatedAt   string       `json:"createdAt"`
}

// Paginated response wrapper
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// Filters

// EnquiryTab selects one of the enquiry list views
type EnquiryTab string

const (
	TabMain            EnquiryTab = "main"
	TabFulfilled       EnquiryTab = "fulfilled"
	TabPendingRequests EnquiryTab = "pending_requests"
	TabAssigned        EnquiryTab = "assigned"
)

type EnquiryFilter struct {
	OwnerID *uuid.UUID
	Status  EnquiryStatus
	Stage   EnquiryStage
	Country string
	Search  string
	From    *time.Time
	To      *time.Time
	Tab     EnquiryTab
}

// FollowUpFilter narrows the follow-up list
type FollowUpFilter struct {
	EnquiryID    *uuid.UUID
	AssignedToID *uuid.UUID
	Type         FollowUpType
}

// Request types

type CreateEnquiryRequest struct {
	ContactName           string          `json:"contactName" validate:"required,max=200"`
	PhoneNumber           string          `json:"phoneNumber" validate:"required,max=50"`
	Email                 string          `json:"email,omitempty" validate:"omitempty,email,max=255"`
	CompanyName           string          `json:"companyName,omitempty" validate:"max=200"`
	Country               string          `json:"country,omitempty" validate:"max=100"`
	Priority              EnquiryPriority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Notes                 string          `json:"notes,omitempty"`
	NextAction            string          `json:"nextAction,omitempty" validate:"max=500"`
	LeadSourceID          *uuid.UUID      `json:"leadSourceId,omitempty"`
	CategoryID            *uuid.UUID      `json:"categoryId,omitempty"`
	SubcategoryID         *uuid.UUID      `json:"subcategoryId,omitempty"`
	AssignedSalesPersonID *uuid.UUID      `json:"assignedSalesPersonId,omitempty"`
}

type UpdateStageRequest struct {
	Stage                 EnquiryStage `json:"stage"`
	ProformaInvoiceNumber *string      `json:"proformaInvoiceNumber,omitempty" validate:"omitempty,max=100"`
	InvoiceNumber         *string      `json:"invoiceNumber,omitempty" validate:"omitempty,max=100"`
	Notes                 string       `json:"notes,omitempty"`
}

type UpdateStatusRequest struct {
	Status   EnquiryStatus `json:"status"`
	ReasonID *uuid.UUID    `json:"reasonId,omitempty"`
}

type UpdateEnquiryReasonRequest struct {
	ReasonID uuid.UUID `json:"reasonId" validate:"required"`
}

type UpdateAssignmentRequest struct {
	UserID *uuid.UUID `json:"userId"`
}

type CreateFollowUpRequest struct {
	ScheduledAt  time.Time    `json:"scheduledAt" validate:"required"`
	Type         FollowUpType `json:"type" validate:"required,oneof=call email meeting"`
	Notes        string       `json:"notes,omitempty"`
	AssignedToID *uuid.UUID   `json:"assignedToId,omitempty"`
}

type UpdateFollowUpRequest struct {
	ScheduledAt  *time.Time    `json:"scheduledAt,omitempty"`
	Type         *FollowUpType `json:"type,omitempty" validate:"omitempty,oneof=call email meeting"`
	Notes        *string       `json:"notes,omitempty"`
	AssignedToID *uuid.UUID    `json:"assignedToId,omitempty"`
}

type UpdateFollowUpStatusRequest struct {
	Status FollowUpStatus `json:"status" validate:"required,oneof=pending completed"`
	Notes  *string        `json:"notes,omitempty"`
}

type UpdateNotificationPreferencesRequest struct {
	EmailFollowUps    *bool `json:"emailFollowUps,omitempty"`
	EmailLeadChanges  *bool `json:"emailLeadChanges,omitempty"`
	EmailAssignments  *bool `json:"emailAssignments,omitempty"`
	EmailUserChanges  *bool `json:"emailUserChanges,omitempty"`
	EmailSystemAlerts *bool `json:"emailSystemAlerts,omitempty"`
	AppFollowUps      *bool `json:"appFollowUps,omitempty"`
	AppLeadChanges    *bool `json:"appLeadChanges,omitempty"`
	AppAssignments    *bool `json:"appAssignments,omitempty"`
	AppUserChanges    *bool `json:"appUserChanges,omitempty"`
	AppSystemAlerts   *bool `json:"appSystemAlerts,omitempty"`
	DailyDigest       *bool `json:"dailyDigest,omitempty"`
	WeeklyDigest      *bool `json:"weeklyDigest,omitempty"`
}

type ReasonRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type LeadSourceRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	IsActive *bool  `json:"isActive,omitempty"`
}

type CreateUserRequest struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Email       string       `json:"email" validate:"required,email,max=255"`
	Role        UserRoleType `json:"role" validate:"required"`
	IsSuperuser bool         `json:"isSuperuser,omitempty"`
}

type ChangeRoleRequest struct {
	Role UserRoleType `json:"role" validate:"required"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type PermissionOverrideRequest struct {
	CanView   bool `json:"canView"`
	CanCreate bool `json:"canCreate"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
	CanImport bool `json:"canImport"`
	CanExport bool `json:"canExport"`
}

type UserPermissionDTO struct {
	Module    PermissionModule `json:"module"`
	CanView   bool             `json:"canView"`
	CanCreate bool             `json:"canCreate"`
	CanEdit   bool             `json:"canEdit"`
	CanDelete bool             `json:"canDelete"`
	CanImport bool             `json:"canImport"`
	CanExport bool             `json:"canExport"`
}

type ActivityDTO struct {
	ID           uuid.UUID      `json:"id"`
	EnquiryID    *uuid.UUID     `json:"enquiryId,omitempty"`
	ActivityType ActivityType   `json:"activityType"`
	Subject      string         `json:"subject"`
	Description  string         `json:"description,omitempty"`
	UserID       *uuid.UUID     `json:"userId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"createdAt"`
}

type StageHistoryDTO struct {
	ID          uuid.UUID     `json:"id"`
	FromStage   *EnquiryStage `json:"fromStage,omitempty"`
	ToStage     EnquiryStage  `json:"toStage"`
	ChangedByID *uuid.UUID    `json:"changedById,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	ChangedAt   string        `json:"changedAt"`
}

// EnquiryHistoryDTO is the audit trail of one enquiry
type EnquiryHistoryDTO struct {
	Stages     []StageHistoryDTO `json:"stages"`
	Activities []ActivityDTO     `json:"activities"`
}

type UnreadCountDTO struct {
	Count int64 `json:"count"`
}

type MarkAllReadDTO struct {
	Updated int `json:"updated"`
}

// AuthUserDTO describes the authenticated caller and what it may do
type AuthUserDTO struct {
	ID          uuid.UUID                               `json:"id"`
	Name        string                                  `json:"name"`
	Email       string                                  `json:"email,omitempty"`
	Roles       []string                                `json:"roles"`
	IsSuperuser bool                                    `json:"isSuperuser"`
	IsSystem    bool                                    `json:"isSystem"`
	Permissions map[PermissionModule][]PermissionAction `json:"permissions"`
}
