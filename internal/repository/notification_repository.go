package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// Create inserts notification. When it carries a dedupe key that already
// exists nothing is written and created is false.
func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (bool, error) {
	notification.ScheduledFor = notification.ScheduledFor.UTC()
	query := r.db.WithContext(ctx).Omit(clause.Associations)
	if notification.DedupeKey != nil {
		query = query.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		})
	}
	result := query.Create(notification)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Save writes every column of notification
func (r *NotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(notification).Error
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).
		Preload("Type").
		Preload("Recipient").
		First(&n, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ExistsByDedupeKey reports whether a notification with key was already created
func (r *NotificationRepository) ExistsByDedupeKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("dedupe_key = ?", key).Count(&count).Error
	return count > 0, err
}

// ListByUser returns a page of the user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]domain.Notification, int64, error) {
	page, pageSize = NormalizePage(page, pageSize)

	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("recipient_id = ?", userID)
		if unreadOnly {
			query = query.Where("status IN ?", domain.UnreadNotificationStatuses)
		}
		return query
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	var notifications []domain.Notification
	err := base().
		Preload("Type").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// Unread returns up to limit unread notifications of the user, newest first
func (r *NotificationRepository) Unread(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	query := r.db.WithContext(ctx).
		Preload("Type").
		Where("recipient_id = ? AND status IN ?", userID, domain.UnreadNotificationStatuses).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND status IN ?", userID, domain.UnreadNotificationStatuses).
		Count(&count).Error
	return count, err
}

// MarkAllRead marks every unread notification of the user as read and
// returns the affected ids.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND status IN ?", userID, domain.UnreadNotificationStatuses).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	err = r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":  domain.NotificationStatusRead,
			"read_at": now.UTC(),
		}).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Notification{}, "id = ?", id).Error
}

// DuePending returns pending notifications scheduled at or before now
func (r *NotificationRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var notifications []domain.Notification
	query := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.NotificationStatusPending, now.UTC()).
		Order("scheduled_for ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&notifications).Error
	return notifications, err
}

// CountByType counts notifications of a type, optionally for one recipient
func (r *NotificationRepository) CountByType(ctx context.Context, typeID uuid.UUID, recipientID *uuid.UUID) (int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("type_id = ?", typeID)
	if recipientID != nil {
		query = query.Where("recipient_id = ?", *recipientID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

type NotificationTypeRepository struct {
	db *gorm.DB
}

func NewNotificationTypeRepository(db *gorm.DB) *NotificationTypeRepository {
	return &NotificationTypeRepository{db: db}
}

// GetByName returns the active type called name, or nil when it is missing or inactive
func (r *NotificationTypeRepository) GetByName(ctx context.Context, name domain.NotificationTypeName) (*domain.NotificationType, error) {
	var t domain.NotificationType
	err := r.db.WithContext(ctx).Where("name = ? AND is_active = ?", name, true).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *NotificationTypeRepository) List(ctx context.Context) ([]domain.NotificationType, error) {
	var types []domain.NotificationType
	err := r.db.WithContext(ctx).Order("category ASC, name ASC").Find(&types).Error
	return types, err
}

func (r *NotificationTypeRepository) Save(ctx context.Context, t *domain.NotificationType) error {
	return r.db.WithContext(ctx).Save(t).Error
}

type NotificationPreferenceRepository struct {
	db *gorm.DB
}

func NewNotificationPreferenceRepository(db *gorm.DB) *NotificationPreferenceRepository {
	return &NotificationPreferenceRepository{db: db}
}

func (r *NotificationPreferenceRepository) WithTx(tx *gorm.DB) *NotificationPreferenceRepository {
	return &NotificationPreferenceRepository{db: tx}
}

// GetOrCreate returns the user's preferences, inserting the defaults first
// when the user has none.
func (r *NotificationPreferenceRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*domain.NotificationPreference, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(domain.DefaultNotificationPreference(userID)).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create notification preferences: %w", err)
	}

	var pref domain.NotificationPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *NotificationPreferenceRepository) Save(ctx context.Context, pref *domain.NotificationPreference) error {
	return r.db.WithContext(ctx).Save(pref).Error
}

// UsersWithDailyDigest returns ids of active users who opted into the daily digest
func (r *NotificationPreferenceRepository) UsersWithDailyDigest(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.NotificationPreference{}).
		Joins("JOIN users ON users.id = notification_preferences.user_id").
		Where("notification_preferences.daily_digest = ? AND users.is_active = ?", true, true).
		Pluck("notification_preferences.user_id", &ids).Error
	return ids, err
}

type NotificationLogRepository struct {
	db *gorm.DB
}

func NewNotificationLogRepository(db *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) WithTx(tx *gorm.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: tx}
}

func (r *NotificationLogRepository) Create(ctx context.Context, notificationID uuid.UUID, action domain.NotificationAction, details string) error {
	return r.db.WithContext(ctx).Create(&domain.NotificationLog{
		NotificationID: notificationID,
		Action:         action,
		Details:        details,
	}).Error
}

func (r *NotificationLogRepository) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]domain.NotificationLog, error) {
	var logs []domain.NotificationLog
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
