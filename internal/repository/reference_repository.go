package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
)

// ReferenceRepository handles the lookup tables consumed by enquiries:
// reasons, lead sources, categories and subcategories.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) WithTx(tx *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: tx}
}

func activeOnly(query *gorm.DB, only bool) *gorm.DB {
	if only {
		return query.Where("is_active = ?", true)
	}
	return query
}

// Reasons

func (r *ReferenceRepository) ListReasons(ctx context.Context, onlyActive bool) ([]domain.Reason, error) {
	var reasons []domain.Reason
	err := activeOnly(r.db.WithContext(ctx), onlyActive).Order("name ASC").Find(&reasons).Error
	return reasons, err
}

func (r *ReferenceRepository) GetReason(ctx context.Context, id uuid.UUID) (*domain.Reason, error) {
	var reason domain.Reason
	if err := r.db.WithContext(ctx).First(&reason, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *ReferenceRepository) CreateReason(ctx context.Context, reason *domain.Reason) error {
	return r.db.WithContext(ctx).Create(reason).Error
}

func (r *ReferenceRepository) SaveReason(ctx context.Context, reason *domain.Reason) error {
	return r.db.WithContext(ctx).Save(reason).Error
}

func (r *ReferenceRepository) DeleteReason(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Reason{}, "id = ?", id).Error
}

// ReasonInUse reports whether any enquiry references the reason
func (r *ReferenceRepository) ReasonInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Enquiry{}).Where("reason_id = ?", id).Count(&count).Error
	return count > 0, err
}

// Lead sources

func (r *ReferenceRepository) ListLeadSources(ctx context.Context, onlyActive bool) ([]domain.LeadSource, error) {
	var sources []domain.LeadSource
	err := activeOnly(r.db.WithContext(ctx), onlyActive).Order("name ASC").Find(&sources).Error
	return sources, err
}

func (r *ReferenceRepository) GetLeadSource(ctx context.Context, id uuid.UUID) (*domain.LeadSource, error) {
	var source domain.LeadSource
	if err := r.db.WithContext(ctx).First(&source, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *ReferenceRepository) CreateLeadSource(ctx context.Context, source *domain.LeadSource) error {
	return r.db.WithContext(ctx).Create(source).Error
}

func (r *ReferenceRepository) SaveLeadSource(ctx context.Context, source *domain.LeadSource) error {
	return r.db.WithContext(ctx).Save(source).Error
}

func (r *ReferenceRepository) LeadSourceInUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Enquiry{}).Where("lead_source_id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *ReferenceRepository) DeleteLeadSource(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.LeadSource{}, "id = ?", id).Error
}

// Categories

func (r *ReferenceRepository) ListCategories(ctx context.Context, onlyActive bool) ([]domain.Category, error) {
	var categories []domain.Category
	err := activeOnly(r.db.WithContext(ctx), onlyActive).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *ReferenceRepository) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var category domain.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *ReferenceRepository) CreateCategory(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *ReferenceRepository) CreateSubcategory(ctx context.Context, sub *domain.Subcategory) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *ReferenceRepository) ListSubcategories(ctx context.Context, categoryID uuid.UUID) ([]domain.Subcategory, error) {
	var subs []domain.Subcategory
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND is_active = ?", categoryID, true).
		Order("name ASC").
		Find(&subs).Error
	return subs, err
}
