package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a random ID when none was set by the caller.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// EnquiryStage is the position of an enquiry in the sales funnel
type EnquiryStage string

const (
	StageReceived            EnquiryStage = "received"
	StageQuotationSent       EnquiryStage = "quotation_sent"
	StageNegotiation         EnquiryStage = "negotiation"
	StageProformaInvoiceSent EnquiryStage = "proforma_invoice_sent"
	StageInvoiceSent         EnquiryStage = "invoice_sent"
	StageLost                EnquiryStage = "lost"
)

// EnquiryStages lists all stages in funnel order
var EnquiryStages = []EnquiryStage{
	StageReceived,
	StageQuotationSent,
	StageNegotiation,
	StageProformaInvoiceSent,
	StageInvoiceSent,
	StageLost,
}

var stageLabels = map[EnquiryStage]string{
	StageReceived:            "Enquiry Received",
	StageQuotationSent:       "Quotation Sent",
	StageNegotiation:         "Negotiation",
	StageProformaInvoiceSent: "Proforma Invoice Sent (PI Sent)",
	StageInvoiceSent:         "Invoice Sent",
	StageLost:                "Lost",
}

// IsValid checks if the stage is one of the known funnel stages
func (s EnquiryStage) IsValid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the human readable stage name
func (s EnquiryStage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// EscalatesToManagers reports whether reaching this stage notifies management
func (s EnquiryStage) EscalatesToManagers() bool {
	return s == StageLost || s == StageProformaInvoiceSent || s == StageInvoiceSent
}

// EnquiryStatus is the fulfillment outcome of an enquiry
type EnquiryStatus string

const (
	StatusFulfilled    EnquiryStatus = "fulfilled"
	StatusNotFulfilled EnquiryStatus = "not_fulfilled"
)

func (s EnquiryStatus) IsValid() bool {
	return s == StatusFulfilled || s == StatusNotFulfilled
}

// Label returns the human readable status name
func (s EnquiryStatus) Label() string {
	switch s {
	case StatusFulfilled:
		return "Fulfilled"
	case StatusNotFulfilled:
		return "Not Fulfilled"
	default:
		return string(s)
	}
}

// AssignmentStatus tracks the accept/reject handshake of an assignment
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentAccepted AssignmentStatus = "accepted"
	AssignmentRejected AssignmentStatus = "rejected"
)

func (s AssignmentStatus) IsValid() bool {
	return s == AssignmentPending || s == AssignmentAccepted || s == AssignmentRejected
}

// EnquiryPriority represents how urgent an enquiry is
type EnquiryPriority string

const (
	PriorityLow    EnquiryPriority = "low"
	PriorityMedium EnquiryPriority = "medium"
	PriorityHigh   EnquiryPriority = "high"
)

func (p EnquiryPriority) IsValid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Invoice number format enforced when an enquiry reaches invoice_sent
const (
	InvoiceNumberLength = 10
	InvoiceNumberPrefix = "INV"
)

// Account is an organisation that contacts belong to
type Account struct {
	BaseModel
	Name        string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id"`
}

func (Account) TableName() string {
	return "accounts"
}

// Contact is the canonical person record resolved from an enquiry's phone number
type Contact struct {
	BaseModel
	FullName    string     `gorm:"type:varchar(200);not null"`
	PhoneNumber string     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Email       string     `gorm:"type:varchar(255)"`
	AccountID   *uuid.UUID `gorm:"type:uuid;column:account_id"`
	Account     *Account   `gorm:"foreignKey:AccountID"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Reason explains why an enquiry was not fulfilled
type Reason struct {
	BaseModel
	Name        string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	IsActive    bool   `gorm:"not null"`
}

func (Reason) TableName() string {
	return "reasons"
}

// LeadSource records where an enquiry came from
type LeadSource struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null;uniqueIndex"`
	IsActive bool   `gorm:"not null"`
}

func (LeadSource) TableName() string {
	return "lead_sources"
}

// Category groups enquiries by product area
type Category struct {
	BaseModel
	Name          string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	IsActive      bool          `gorm:"not null"`
	Subcategories []Subcategory `gorm:"foreignKey:CategoryID"`
}

func (Category) TableName() string {
	return "categories"
}

// Subcategory refines a Category
type Subcategory struct {
	BaseModel
	CategoryID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_subcategory_name"`
	Name       string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_subcategory_name"`
	IsActive   bool      `gorm:"not null"`
}

func (Subcategory) TableName() string {
	return "subcategories"
}

// Enquiry is a single sales inquiry tied to a contact
type Enquiry struct {
	BaseModel
	ContactID             *uuid.UUID        `gorm:"type:uuid;column:contact_id;index"`
	Contact               *Contact          `gorm:"foreignKey:ContactID"`
	ContactName           string            `gorm:"type:varchar(200);not null"`
	PhoneNumber           string            `gorm:"type:varchar(50);not null;index"`
	Email                 string            `gorm:"type:varchar(255)"`
	CompanyName           string            `gorm:"type:varchar(200)"`
	Country               string            `gorm:"type:varchar(100)"`
	Priority              EnquiryPriority   `gorm:"type:varchar(20);not null;default:'medium'"`
	Notes                 string            `gorm:"type:text"`
	NextAction            string            `gorm:"type:varchar(500)"`
	LeadSourceID          *uuid.UUID        `gorm:"type:uuid;column:lead_source_id"`
	LeadSource            *LeadSource       `gorm:"foreignKey:LeadSourceID"`
	CategoryID            *uuid.UUID        `gorm:"type:uuid;column:category_id"`
	Category              *Category         `gorm:"foreignKey:CategoryID"`
	SubcategoryID         *uuid.UUID        `gorm:"type:uuid;column:subcategory_id"`
	Subcategory           *Subcategory      `gorm:"foreignKey:SubcategoryID"`
	AssignedSalesPersonID *uuid.UUID        `gorm:"type:uuid;column:assigned_sales_person_id;index"`
	AssignedSalesPerson   *User             `gorm:"foreignKey:AssignedSalesPersonID"`
	AssignedByID          *uuid.UUID        `gorm:"type:uuid;column:assigned_by_id"`
	CreatedByID           *uuid.UUID        `gorm:"type:uuid;column:created_by_id;index"`
	Stage                 EnquiryStage      `gorm:"type:varchar(50);not null;default:'received';index"`
	Status                EnquiryStatus     `gorm:"type:varchar(50);not null;default:'not_fulfilled';index"`
	IsLocked              bool              `gorm:"not null;default:false"`
	AssignmentStatus      *AssignmentStatus `gorm:"type:varchar(20);column:assignment_status"`
	ProformaInvoiceNumber string            `gorm:"type:varchar(100);column:proforma_invoice_number"`
	InvoiceNumber         string            `gorm:"type:varchar(100);column:invoice_number"`
	ReasonID              *uuid.UUID        `gorm:"type:uuid;column:reason_id"`
	Reason                *Reason           `gorm:"foreignKey:ReasonID"`
}

func (Enquiry) TableName() string {
	return "enquiries"
}

// IsAssignedTo reports whether the enquiry is currently assigned to userID
func (e *Enquiry) IsAssignedTo(userID uuid.UUID) bool {
	return e.AssignedSalesPersonID != nil && *e.AssignedSalesPersonID == userID
}

// IsCreatedBy reports whether userID created the enquiry
func (e *Enquiry) IsCreatedBy(userID uuid.UUID) bool {
	return e.CreatedByID != nil && *e.CreatedByID == userID
}

// EnquiryStageHistory tracks stage transitions of an enquiry
type EnquiryStageHistory struct {
	BaseModel
	EnquiryID   uuid.UUID     `gorm:"type:uuid;not null;index"`
	FromStage   *EnquiryStage `gorm:"type:varchar(50)"`
	ToStage     EnquiryStage  `gorm:"type:varchar(50);not null"`
	ChangedByID *uuid.UUID    `gorm:"type:uuid;column:changed_by_id"`
	Notes       string        `gorm:"type:text"`
	ChangedAt   time.Time     `gorm:"not null"`
}

func (EnquiryStageHistory) TableName() string {
	return "enquiry_stage_history"
}

// ActivityType represents the kind of activity recorded against an enquiry
type ActivityType string

const (
	ActivityTypeCall         ActivityType = "call"
	ActivityTypeEmail        ActivityType = "email"
	ActivityTypeMeeting      ActivityType = "meeting"
	ActivityTypeNote         ActivityType = "note"
	ActivityTypeTask         ActivityType = "task"
	ActivityTypeStageChange  ActivityType = "stage_change"
	ActivityTypeStatusChange ActivityType = "status_change"
	ActivityTypeReasonUpdate ActivityType = "reason_update"
	ActivityTypeAssignment   ActivityType = "assignment"
)

// ActivityLog is an audit entry attached to an enquiry or contact
type ActivityLog struct {
	BaseModel
	EnquiryID    *uuid.UUID        `gorm:"type:uuid;column:enquiry_id;index"`
	ContactID    *uuid.UUID        `gorm:"type:uuid;column:contact_id"`
	ActivityType ActivityType      `gorm:"type:varchar(50);not null"`
	Subject      string            `gorm:"type:varchar(255);not null"`
	Description  string            `gorm:"type:text"`
	UserID       *uuid.UUID        `gorm:"type:uuid;column:user_id"`
	Metadata     datatypes.JSONMap `gorm:"type:json"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}

// FollowUpType is the channel of a scheduled follow-up
type FollowUpType string

const (
	FollowUpCall    FollowUpType = "call"
	FollowUpEmail   FollowUpType = "email"
	FollowUpMeeting FollowUpType = "meeting"
)

func (t FollowUpType) IsValid() bool {
	return t == FollowUpCall || t == FollowUpEmail || t == FollowUpMeeting
}

// FollowUpStatus is the derived state of a follow-up
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpCompleted FollowUpStatus = "completed"
	FollowUpOverdue   FollowUpStatus = "overdue"
)

func (s FollowUpStatus) IsValid() bool {
	return s == FollowUpPending || s == FollowUpCompleted || s == FollowUpOverdue
}

// FollowUp is a scheduled reminder against an enquiry
type FollowUp struct {
	BaseModel
	EnquiryID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Enquiry      *Enquiry       `gorm:"foreignKey:EnquiryID;constraint:OnDelete:CASCADE"`
	ScheduledAt  time.Time      `gorm:"not null;index"`
	Type         FollowUpType   `gorm:"type:varchar(20);not null"`
	Notes        string         `gorm:"type:text"`
	Status       FollowUpStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CompletedAt  *time.Time
	CreatedByID  uuid.UUID `gorm:"type:uuid;not null;column:created_by_id"`
	AssignedToID uuid.UUID `gorm:"type:uuid;not null;column:assigned_to_id;index"`
}

func (FollowUp) TableName() string {
	return "follow_ups"
}

// UserRoleType represents a role a user can have
type UserRoleType string

const (
	RoleSuperuser   UserRoleType = "superuser"
	RoleAdmin       UserRoleType = "admin"
	RoleManager     UserRoleType = "manager"
	RoleSalesperson UserRoleType = "salesperson"
	RoleSupport     UserRoleType = "support"
	RoleViewer      UserRoleType = "viewer"
	RoleAPIService  UserRoleType = "api_service"
)

// ManagementRoles receive escalated notifications and see all enquiries
var ManagementRoles = []UserRoleType{RoleManager, RoleAdmin, RoleSuperuser}

func (r UserRoleType) IsValid() bool {
	switch r {
	case RoleSuperuser, RoleAdmin, RoleManager, RoleSalesperson, RoleSupport, RoleViewer, RoleAPIService:
		return true
	}
	return false
}

// Role is a named permission level assigned to users
type Role struct {
	BaseModel
	Name        UserRoleType `gorm:"type:varchar(50);not null;uniqueIndex"`
	DisplayName string       `gorm:"type:varchar(100);not null"`
	Level       int          `gorm:"not null;default:0"`
}

func (Role) TableName() string {
	return "roles"
}

// User is a CRM user
type User struct {
	BaseModel
	Name        string     `gorm:"type:varchar(200);not null"`
	Email       string     `gorm:"type:varchar(255);uniqueIndex"`
	RoleID      *uuid.UUID `gorm:"type:uuid;column:role_id"`
	Role        *Role      `gorm:"foreignKey:RoleID"`
	IsActive    bool       `gorm:"not null"`
	IsSuperuser bool       `gorm:"not null;default:false"`
}

func (User) TableName() string {
	return "users"
}

// RoleName returns the user's role or an empty role when none is assigned
func (u *User) RoleName() UserRoleType {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// PermissionModule is an area of the application guarded by permissions
type PermissionModule string

const (
	ModuleContacts   PermissionModule = "contacts"
	ModuleEnquiries  PermissionModule = "enquiries"
	ModuleActivities PermissionModule = "activities"
	ModuleAccounts   PermissionModule = "accounts"
	ModuleReports    PermissionModule = "reports"
	ModuleUsers      PermissionModule = "users"
	ModuleSettings   PermissionModule = "settings"
	ModuleImport     PermissionModule = "import"
)

// PermissionModules lists every guarded module
var PermissionModules = []PermissionModule{
	ModuleContacts, ModuleEnquiries, ModuleActivities, ModuleAccounts,
	ModuleReports, ModuleUsers, ModuleSettings, ModuleImport,
}

// PermissionActions lists every action a module can grant
var PermissionActions = []PermissionAction{
	ActionView, ActionCreate, ActionEdit, ActionDelete, ActionImport, ActionExport,
}

func (m PermissionModule) IsValid() bool {
	switch m {
	case ModuleContacts, ModuleEnquiries, ModuleActivities, ModuleAccounts, ModuleReports, ModuleUsers, ModuleSettings, ModuleImport:
		return true
	}
	return false
}

// PermissionAction is an operation on a module
type PermissionAction string

const (
	ActionView   PermissionAction = "view"
	ActionCreate PermissionAction = "create"
	ActionEdit   PermissionAction = "edit"
	ActionDelete PermissionAction = "delete"
	ActionImport PermissionAction = "import"
	ActionExport PermissionAction = "export"
)

// UserPermission overrides the role defaults of a user for one module
type UserPermission struct {
	BaseModel
	UserID    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_user_module"`
	Module    PermissionModule `gorm:"type:varchar(50);not null;uniqueIndex:idx_user_module"`
	CanView   bool             `gorm:"not null;default:false"`
	CanCreate bool             `gorm:"not null;default:false"`
	CanEdit   bool             `gorm:"not null;default:false"`
	CanDelete bool             `gorm:"not null;default:false"`
	CanImport bool             `gorm:"not null;default:false"`
	CanExport bool             `gorm:"not null;default:false"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// Allows reports whether the override grants the given action
func (p *UserPermission) Allows(action PermissionAction) bool {
	switch action {
	case ActionView:
		return p.CanView
	case ActionCreate:
		return p.CanCreate
	case ActionEdit:
		return p.CanEdit
	case ActionDelete:
		return p.CanDelete
	case ActionImport:
		return p.CanImport
	case ActionExport:
		return p.CanExport
	}
	return false
}
