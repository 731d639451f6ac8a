package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
)

// ActivityRepository stores the audit trail of an enquiry: activity log
// entries and stage history rows.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.ActivityLog) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) ListByEnquiry(ctx context.Context, enquiryID uuid.UUID) ([]domain.ActivityLog, error) {
	var activities []domain.ActivityLog
	err := r.db.WithContext(ctx).
		Where("enquiry_id = ?", enquiryID).
		Order("created_at ASC").
		Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) CreateStageHistory(ctx context.Context, history *domain.EnquiryStageHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *ActivityRepository) ListStageHistory(ctx context.Context, enquiryID uuid.UUID) ([]domain.EnquiryStageHistory, error) {
	var history []domain.EnquiryStageHistory
	err := r.db.WithContext(ctx).
		Where("enquiry_id = ?", enquiryID).
		Order("changed_at ASC").
		Find(&history).Error
	return history, err
}

// DeleteByEnquiry removes the audit trail of an enquiry
func (r *ActivityRepository) DeleteByEnquiry(ctx context.Context, enquiryID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("enquiry_id = ?", enquiryID).Delete(&domain.EnquiryStageHistory{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("enquiry_id = ?", enquiryID).Delete(&domain.ActivityLog{}).Error
}
