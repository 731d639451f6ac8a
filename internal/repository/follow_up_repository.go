package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowUpRepository handles database operations for follow-ups.
// All times are written and compared in UTC.
type FollowUpRepository struct {
	db *gorm.DB
}

func NewFollowUpRepository(db *gorm.DB) *FollowUpRepository {
	return &FollowUpRepository{db: db}
}

func (r *FollowUpRepository) WithTx(tx *gorm.DB) *FollowUpRepository {
	return &FollowUpRepository{db: tx}
}

func normalizeTimes(f *domain.FollowUp) {
	f.ScheduledAt = f.ScheduledAt.UTC()
	if f.CompletedAt != nil {
		t := f.CompletedAt.UTC()
		f.CompletedAt = &t
	}
}

func (r *FollowUpRepository) Create(ctx context.Context, f *domain.FollowUp) error {
	normalizeTimes(f)
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(f).Error
}

func (r *FollowUpRepository) Save(ctx context.Context, f *domain.FollowUp) error {
	normalizeTimes(f)
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(f).Error
}

func (r *FollowUpRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FollowUp, error) {
	var f domain.FollowUp
	if err := r.db.WithContext(ctx).Preload("Enquiry").First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// GetForUpdate reads the follow-up with a row lock. Must run inside a transaction.
func (r *FollowUpRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.FollowUp, error) {
	var f domain.FollowUp
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&f, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FollowUpRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.FollowUp{}, "id = ?", id).Error
}

// ListOpen returns follow-ups without completed_at visible under v, earliest first
func (r *FollowUpRepository) ListOpen(ctx context.Context, filter domain.FollowUpFilter, v Visibility) ([]domain.FollowUp, error) {
	query := ApplyFollowUpVisibility(r.db.WithContext(ctx).Model(&domain.FollowUp{}), v).
		Where("follow_ups.completed_at IS NULL")
	if filter.EnquiryID != nil {
		query = query.Where("follow_ups.enquiry_id = ?", *filter.EnquiryID)
	}
	if filter.AssignedToID != nil {
		query = query.Where("follow_ups.assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.Type != "" {
		query = query.Where("follow_ups.type = ?", filter.Type)
	}

	var items []domain.FollowUp
	err := query.
		Preload("Enquiry").
		Order("follow_ups.scheduled_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups: %w", err)
	}
	return items, nil
}

// ListByEnquiry returns every follow-up of an enquiry, earliest first
func (r *FollowUpRepository) ListByEnquiry(ctx context.Context, enquiryID uuid.UUID) ([]domain.FollowUp, error) {
	var items []domain.FollowUp
	err := r.db.WithContext(ctx).
		Where("enquiry_id = ?", enquiryID).
		Order("scheduled_at ASC").
		Find(&items).Error
	return items, err
}

// DueBetween returns open follow-ups scheduled in [from, to)
func (r *FollowUpRepository) DueBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.FollowUp, error) {
	var items []domain.FollowUp
	query := r.db.WithContext(ctx).
		Preload("Enquiry").
		Where("completed_at IS NULL AND scheduled_at >= ? AND scheduled_at < ?", from.UTC(), to.UTC()).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list due follow-ups: %w", err)
	}
	return items, nil
}

// OverdueAt returns open follow-ups scheduled before now
func (r *FollowUpRepository) OverdueAt(ctx context.Context, now time.Time, limit int) ([]domain.FollowUp, error) {
	var items []domain.FollowUp
	query := r.db.WithContext(ctx).
		Preload("Enquiry").
		Where("completed_at IS NULL AND scheduled_at < ?", now.UTC()).
		Order("scheduled_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list overdue follow-ups: %w", err)
	}
	return items, nil
}

// MarkOverdue refreshes the stored status of open follow-ups that passed
// their scheduled time. It returns the number of rows changed.
func (r *FollowUpRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.FollowUp{}).
		Where("completed_at IS NULL AND status = ? AND scheduled_at < ?", domain.FollowUpPending, now.UTC()).
		Update("status", domain.FollowUpOverdue)
	return result.RowsAffected, result.Error
}

// CountDueBetween counts open follow-ups in [from, to) visible under v
func (r *FollowUpRepository) CountDueBetween(ctx context.Context, v Visibility, from, to time.Time) (int64, error) {
	var count int64
	err := ApplyFollowUpVisibility(r.db.WithContext(ctx).Model(&domain.FollowUp{}), v).
		Where("follow_ups.completed_at IS NULL AND follow_ups.scheduled_at >= ? AND follow_ups.scheduled_at < ?", from.UTC(), to.UTC()).
		Count(&count).Error
	return count, err
}

// CountOverdue counts open follow-ups scheduled before now visible under v
func (r *FollowUpRepository) CountOverdue(ctx context.Context, v Visibility, now time.Time) (int64, error) {
	var count int64
	err := ApplyFollowUpVisibility(r.db.WithContext(ctx).Model(&domain.FollowUp{}), v).
		Where("follow_ups.completed_at IS NULL AND follow_ups.scheduled_at < ?", now.UTC()).
		Count(&count).Error
	return count, err
}
