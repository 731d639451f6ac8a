package mapper

import (
	"fmt"
	"time"

	"github.com/straye-as/enquiry-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToEnquiryDTO converts Enquiry to EnquiryDTO
func ToEnquiryDTO(enquiry *domain.Enquiry) domain.EnquiryDTO {
	dto := domain.EnquiryDTO{
		ID:                    enquiry.ID,
		ContactID:             enquiry.ContactID,
		ContactName:           enquiry.ContactName,
		PhoneNumber:           enquiry.PhoneNumber,
		Email:                 enquiry.Email,
		CompanyName:           enquiry.CompanyName,
		Country:               enquiry.Country,
		Priority:              enquiry.Priority,
		Notes:                 enquiry.Notes,
		NextAction:            enquiry.NextAction,
		LeadSourceID:          enquiry.LeadSourceID,
		CategoryID:            enquiry.CategoryID,
		SubcategoryID:         enquiry.SubcategoryID,
		AssignedSalesPersonID: enquiry.AssignedSalesPersonID,
		CreatedByID:           enquiry.CreatedByID,
		Stage:                 enquiry.Stage,
		StageLabel:            enquiry.Stage.Label(),
		Status:                enquiry.Status,
		IsLocked:              enquiry.IsLocked,
		AssignmentStatus:      enquiry.AssignmentStatus,
		ProformaInvoiceNumber: enquiry.ProformaInvoiceNumber,
		InvoiceNumber:         enquiry.InvoiceNumber,
		ReasonID:              enquiry.ReasonID,
		CreatedAt:             formatTime(enquiry.CreatedAt),
		UpdatedAt:             formatTime(enquiry.UpdatedAt),
	}
	if enquiry.Reason != nil {
		dto.ReasonName = enquiry.Reason.Name
	}
	return dto
}

// ToEnquiryDTOs converts a slice of enquiries
func ToEnquiryDTOs(enquiries []domain.Enquiry) []domain.EnquiryDTO {
	dtos := make([]domain.EnquiryDTO, len(enquiries))
	for i := range enquiries {
		dtos[i] = ToEnquiryDTO(&enquiries[i])
	}
	return dtos
}

// ToContactDTO converts Contact to ContactDTO
func ToContactDTO(contact *domain.Contact) domain.ContactDTO {
	return domain.ContactDTO{
		ID:          contact.ID,
		FullName:    contact.FullName,
		PhoneNumber: contact.PhoneNumber,
		Email:       contact.Email,
		AccountID:   contact.AccountID,
		CreatedAt:   formatTime(contact.CreatedAt),
	}
}

// ToFollowUpDTO converts FollowUp to FollowUpDTO. The date predicates are
// evaluated at now; canEdit and canDelete are decided by the caller.
func ToFollowUpDTO(f *domain.FollowUp, now time.Time, canEdit, canDelete bool) domain.FollowUpDTO {
	dto := domain.FollowUpDTO{
		ID:           f.ID,
		EnquiryID:    f.EnquiryID,
		ScheduledAt:  formatTime(f.ScheduledAt),
		Type:         f.Type,
		Notes:        f.Notes,
		Status:       f.DeriveStatus(now),
		CompletedAt:  formatTimePtr(f.CompletedAt),
		CreatedByID:  f.CreatedByID,
		AssignedToID: f.AssignedToID,
		IsOverdue:    f.IsOverdue(now),
		IsDueToday:   f.IsDueToday(now),
		IsUpcoming:   f.IsUpcoming(now),
		CanEdit:      canEdit,
		CanDelete:    canDelete,
	}
	if f.Enquiry != nil {
		dto.ContactName = f.Enquiry.ContactName
	}
	return dto
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(n *domain.Notification) domain.NotificationDTO {
	dto := domain.NotificationDTO{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Message,
		Status:      n.Status,
		Read:        n.Status == domain.NotificationStatusRead,
		SourceKind:  n.SourceKind,
		SourceID:    n.SourceID,
		Data:        n.Data,
		EmailSent:   n.EmailSent,
		CreatedAt:   formatTime(n.CreatedAt),
		ReadAt:      formatTimePtr(n.ReadAt),
		ScheduledAt: formatTime(n.ScheduledFor),
	}
	if n.Type != nil {
		dto.Type = n.Type.Name
		dto.Category = n.Type.Category
		dto.Priority = n.Type.Priority
	}
	return dto
}

func ToNotificationTypeDTO(t *domain.NotificationType) domain.NotificationTypeDTO {
	return domain.NotificationTypeDTO{
		Name:          t.Name,
		Description:   t.Description,
		Category:      t.Category,
		Priority:      t.Priority,
		EmailTemplate: t.EmailTemplate,
		SendEmail:     t.SendEmail,
		SendInApp:     t.SendInApp,
		IsActive:      t.IsActive,
	}
}

// ToNotificationPreferenceDTO converts NotificationPreference to its DTO
func ToNotificationPreferenceDTO(p *domain.NotificationPreference) domain.NotificationPreferenceDTO {
	return domain.NotificationPreferenceDTO{
		EmailFollowUps:    p.EmailFollowUps,
		EmailLeadChanges:  p.EmailLeadChanges,
		EmailAssignments:  p.EmailAssignments,
		EmailUserChanges:  p.EmailUserChanges,
		EmailSystemAlerts: p.EmailSystemAlerts,
		AppFollowUps:      p.AppFollowUps,
		AppLeadChanges:    p.AppLeadChanges,
		AppAssignments:    p.AppAssignments,
		AppUserChanges:    p.AppUserChanges,
		AppSystemAlerts:   p.AppSystemAlerts,
		DailyDigest:       p.DailyDigest,
		WeeklyDigest:      p.WeeklyDigest,
	}
}

// ApplyPreferenceUpdate copies every set field of req onto p
func ApplyPreferenceUpdate(p *domain.NotificationPreference, req *domain.UpdateNotificationPreferencesRequest) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.EmailFollowUps, req.EmailFollowUps)
	set(&p.EmailLeadChanges, req.EmailLeadChanges)
	set(&p.EmailAssignments, req.EmailAssignments)
	set(&p.EmailUserChanges, req.EmailUserChanges)
	set(&p.EmailSystemAlerts, req.EmailSystemAlerts)
	set(&p.AppFollowUps, req.AppFollowUps)
	set(&p.AppLeadChanges, req.AppLeadChanges)
	set(&p.AppAssignments, req.AppAssignments)
	set(&p.AppUserChanges, req.AppUserChanges)
	set(&p.AppSystemAlerts, req.AppSystemAlerts)
	set(&p.DailyDigest, req.DailyDigest)
	set(&p.WeeklyDigest, req.WeeklyDigest)
}

func ToUserPermissionDTO(p *domain.UserPermission) domain.UserPermissionDTO {
	return domain.UserPermissionDTO{
		Module:    p.Module,
		CanView:   p.CanView,
		CanCreate: p.CanCreate,
		CanEdit:   p.CanEdit,
		CanDelete: p.CanDelete,
		CanImport: p.CanImport,
		CanExport: p.CanExport,
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	dto := domain.UserDTO{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   formatTime(user.CreatedAt),
	}
	if user.Role != nil {
		dto.Role = user.Role.Name
		dto.RoleName = user.Role.DisplayName
	}
	return dto
}

func ToReasonDTO(r *domain.Reason) domain.ReasonDTO {
	return domain.ReasonDTO{ID: r.ID, Name: r.Name, Description: r.Description, IsActive: r.IsActive}
}

func ToLeadSourceDTO(s *domain.LeadSource) domain.LeadSourceDTO {
	return domain.LeadSourceDTO{ID: s.ID, Name: s.Name, IsActive: s.IsActive}
}

func ToCategoryDTO(c *domain.Category) domain.CategoryDTO {
	return domain.CategoryDTO{ID: c.ID, Name: c.Name, IsActive: c.IsActive}
}

func ToSubcategoryDTO(s *domain.Subcategory) domain.SubcategoryDTO {
	return domain.SubcategoryDTO{ID: s.ID, CategoryID: s.CategoryID, Name: s.Name}
}

// ToActivityDTO converts ActivityLog to ActivityDTO
func ToActivityDTO(a *domain.ActivityLog) domain.ActivityDTO {
	return domain.ActivityDTO{
		ID:           a.ID,
		EnquiryID:    a.EnquiryID,
		ActivityType: a.ActivityType,
		Subject:      a.Subject,
		Description:  a.Description,
		UserID:       a.UserID,
		Metadata:     a.Metadata,
		CreatedAt:    formatTime(a.CreatedAt),
	}
}

func ToStageHistoryDTO(h *domain.EnquiryStageHistory) domain.StageHistoryDTO {
	return domain.StageHistoryDTO{
		ID:          h.ID,
		FromStage:   h.FromStage,
		ToStage:     h.ToStage,
		ChangedByID: h.ChangedByID,
		Notes:       h.Notes,
		ChangedAt:   formatTime(h.ChangedAt),
	}
}

// Paginate wraps data in a PaginatedResponse
func Paginate(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// FormatError creates a formatted error message
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
