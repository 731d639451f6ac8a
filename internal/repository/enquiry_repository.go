package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnquiryRepository handles database operations for enquiries.
//
// Mutations go through GetForUpdate inside a transaction so that the lock
// check and the auto-fulfill derivation see the row that is written back.
type EnquiryRepository struct {
	db *gorm.DB
}

func NewEnquiryRepository(db *gorm.DB) *EnquiryRepository {
	return &EnquiryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *EnquiryRepository) WithTx(tx *gorm.DB) *EnquiryRepository {
	return &EnquiryRepository{db: tx}
}

var enquirySortFields = map[string]string{
	"createdAt":   "enquiries.created_at",
	"updatedAt":   "enquiries.updated_at",
	"contactName": "enquiries.contact_name",
	"stage":       "enquiries.stage",
	"priority":    "enquiries.priority",
}

func (r *EnquiryRepository) Create(ctx context.Context, enquiry *domain.Enquiry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(enquiry).Error
}

// Save writes every column of enquiry without touching associations
func (r *EnquiryRepository) Save(ctx context.Context, enquiry *domain.Enquiry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(enquiry).Error
}

func (r *EnquiryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enquiry, error) {
	var enquiry domain.Enquiry
	err := r.db.WithContext(ctx).
		Preload("Reason").
		Preload("Contact").
		First(&enquiry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// GetForUpdate reads the enquiry with a row lock (SELECT ... FOR UPDATE).
// Must be called inside a transaction.
func (r *EnquiryRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Enquiry, error) {
	var enquiry domain.Enquiry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&enquiry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// Delete removes the enquiry and its follow-ups
func (r *EnquiryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("enquiry_id = ?", id).Delete(&domain.FollowUp{}).Error; err != nil {
		return err
	}
	return db.Delete(&domain.Enquiry{}, "id = ?", id).Error
}

func (r *EnquiryRepository) filtered(ctx context.Context, filter domain.EnquiryFilter, v Visibility, actorID uuid.UUID) *gorm.DB {
	query := ApplyEnquiryVisibility(r.db.WithContext(ctx).Model(&domain.Enquiry{}), v)

	switch filter.Tab {
	case domain.TabMain:
		query = query.Where("enquiries.status = ?", domain.StatusNotFulfilled)
	case domain.TabFulfilled:
		query = query.Where("enquiries.status = ?", domain.StatusFulfilled)
	case domain.TabPendingRequests:
		query = query.Where("enquiries.assignment_status = ? AND enquiries.assigned_sales_person_id = ?",
			domain.AssignmentPending, actorID)
	case domain.TabAssigned:
		query = query.Where("enquiries.assignment_status IS NOT NULL")
	}

	if filter.OwnerID != nil {
		query = query.Where("enquiries.created_by_id = ? OR enquiries.assigned_sales_person_id = ?", *filter.OwnerID, *filter.OwnerID)
	}
	if filter.Status != "" {
		query = query.Where("enquiries.status = ?", filter.Status)
	}
	if filter.Stage != "" {
		query = query.Where("enquiries.stage = ?", filter.Stage)
	}
	if filter.Country != "" {
		query = query.Where("LOWER(enquiries.country) = ?", strings.ToLower(filter.Country))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(enquiries.contact_name) LIKE ? OR enquiries.phone_number LIKE ? OR LOWER(enquiries.company_name) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.From != nil {
		query = query.Where("enquiries.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("enquiries.created_at < ?", filter.To.UTC())
	}
	return query
}

// List returns a page of enquiries matching filter and visible under v.
// actorID is used by the pending_requests tab.
func (r *EnquiryRepository) List(ctx context.Context, filter domain.EnquiryFilter, v Visibility, actorID uuid.UUID, sort SortConfig, page, pageSize int) ([]domain.Enquiry, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	var total int64
	if err := r.filtered(ctx, filter, v, actorID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count enquiries: %w", err)
	}

	var enquiries []domain.Enquiry
	err := r.filtered(ctx, filter, v, actorID).
		Preload("Reason").
		Order(BuildOrderClause(sort, enquirySortFields, "enquiries.created_at")).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&enquiries).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list enquiries: %w", err)
	}
	return enquiries, total, nil
}

// ListAll returns every enquiry matching filter, newest first
func (r *EnquiryRepository) ListAll(ctx context.Context, filter domain.EnquiryFilter, v Visibility, actorID uuid.UUID) ([]domain.Enquiry, error) {
	var enquiries []domain.Enquiry
	err := r.filtered(ctx, filter, v, actorID).
		Order("enquiries.created_at DESC").
		Find(&enquiries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enquiries: %w", err)
	}
	return enquiries, nil
}

// CountCreatedBetween counts enquiries created in [from, to) visible under v
func (r *EnquiryRepository) CountCreatedBetween(ctx context.Context, v Visibility, from, to time.Time) (int64, error) {
	var count int64
	err := ApplyEnquiryVisibility(r.db.WithContext(ctx).Model(&domain.Enquiry{}), v).
		Where("enquiries.created_at >= ? AND enquiries.created_at < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	return count, err
}

// InvalidReferences returns the reference columns of enquiry that point at
// rows which do not exist (or users that are inactive).
func (r *EnquiryRepository) InvalidReferences(ctx context.Context, enquiry *domain.Enquiry) ([]string, error) {
	checks := []struct {
		column string
		id     *uuid.UUID
		model  interface{}
		extra  string
	}{
		{"lead_source_id", enquiry.LeadSourceID, &domain.LeadSource{}, ""},
		{"category_id", enquiry.CategoryID, &domain.Category{}, ""},
		{"subcategory_id", enquiry.SubcategoryID, &domain.Subcategory{}, ""},
		{"assigned_sales_person_id", enquiry.AssignedSalesPersonID, &domain.User{}, "is_active = ?"},
		{"reason_id", enquiry.ReasonID, &domain.Reason{}, ""},
		{"contact_id", enquiry.ContactID, &domain.Contact{}, ""},
	}

	var invalid []string
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		query := r.db.WithContext(ctx).Model(c.model).Where("id = ?", *c.id)
		if c.extra != "" {
			query = query.Where(c.extra, true)
		}
		var count int64
		if err := query.Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to check %s: %w", c.column, err)
		}
		if count == 0 {
			invalid = append(invalid, c.column)
		}
	}
	return invalid, nil
}
