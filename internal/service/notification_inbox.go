package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/domain"
	"github.com/straye-as/enquiry-api/internal/mapper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UnreadSummary is the unread badge payload
type UnreadSummary struct {
	Count int64                    `json:"count"`
	Items []domain.NotificationDTO `json:"items"`
}

func toNotificationDTOs(items []domain.Notification) []domain.NotificationDTO {
	dtos := make([]domain.NotificationDTO, len(items))
	for i := range items {
		dtos[i] = mapper.ToNotificationDTO(&items[i])
	}
	return dtos
}

// List returns a page of the caller's notifications
func (s *NotificationService) List(ctx context.Context, unreadOnly bool, page, pageSize int) (*domain.PaginatedResponse, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	items, total, err := s.notificationRepo.ListByUser(ctx, actor.UserID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, internalError("failed to list notifications", err)
	}
	return mapper.Paginate(toNotificationDTOs(items), total, page, pageSize), nil
}

// Unread returns the caller's unread notifications, newest first
func (s *NotificationService) Unread(ctx context.Context, limit int) (*UnreadSummary, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.notificationRepo.Unread(ctx, actor.UserID, limit)
	if err != nil {
		return nil, internalError("failed to list unread notifications", err)
	}
	count, err := s.notificationRepo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, internalError("failed to count unread notifications", err)
	}
	return &UnreadSummary{Count: count, Items: toNotificationDTOs(items)}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return 0, err
	}
	count, err := s.notificationRepo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, internalError("failed to count unread notifications", err)
	}
	return count, nil
}

func (s *NotificationService) owned(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("Notification")
		}
		return nil, internalError("failed to load notification", err)
	}
	if n.RecipientID != actor.UserID {
		return nil, permissionDenied("You can only access your own notifications")
	}
	return n, nil
}

// MarkRead marks one of the caller's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) (*domain.NotificationDTO, error) {
	n, err := s.owned(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != domain.NotificationStatusRead {
		now := s.clock.Now().UTC()
		n.Status = domain.NotificationStatusRead
		n.ReadAt = &now

		t, r := n.Type, n.Recipient
		n.Type, n.Recipient = nil, nil
		if err := s.notificationRepo.Save(ctx, n); err != nil {
			return nil, internalError("failed to update notification", err)
		}
		n.Type, n.Recipient = t, r
		s.logRead(ctx, n.ID, "")
	}
	dto := mapper.ToNotificationDTO(n)
	return &dto, nil
}

// MarkAllRead marks every unread notification of the caller as read
func (s *NotificationService) MarkAllRead(ctx context.Context) (int, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return 0, err
	}
	ids, err := s.notificationRepo.MarkAllRead(ctx, actor.UserID, s.clock.Now())
	if err != nil {
		return 0, internalError("failed to mark notifications read", err)
	}
	for _, id := range ids {
		s.logRead(ctx, id, "bulk")
	}
	return len(ids), nil
}

func (s *NotificationService) logRead(ctx context.Context, id uuid.UUID, details string) {
	if err := s.logRepo.Create(ctx, id, domain.NotificationActionRead, details); err != nil {
		s.logger.Warn("failed to write notification log", zap.String("notification_id", id.String()), zap.Error(err))
	}
}

// Delete removes one of the caller's notifications
func (s *NotificationService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}
	if err := s.notificationRepo.Delete(ctx, id); err != nil {
		return internalError("failed to delete notification", err)
	}
	return nil
}

func (s *NotificationService) GetPreferences(ctx context.Context) (*domain.NotificationPreferenceDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefRepo.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return nil, internalError("failed to load notification preferences", err)
	}
	dto := mapper.ToNotificationPreferenceDTO(pref)
	return &dto, nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, req *domain.UpdateNotificationPreferencesRequest) (*domain.NotificationPreferenceDTO, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	pref, err := s.prefRepo.GetOrCreate(ctx, actor.UserID)
	if err != nil {
		return nil, internalError("failed to load notification preferences", err)
	}
	mapper.ApplyPreferenceUpdate(pref, req)
	if err := s.prefRepo.Save(ctx, pref); err != nil {
		return nil, internalError("failed to save notification preferences", err)
	}
	dto := mapper.ToNotificationPreferenceDTO(pref)
	return &dto, nil
}

// ListTypes returns the notification taxonomy
func (s *NotificationService) ListTypes(ctx context.Context) ([]domain.NotificationTypeDTO, error) {
	types, err := s.typeRepo.List(ctx)
	if err != nil {
		return nil, internalError("failed to list notification types", err)
	}
	dtos := make([]domain.NotificationTypeDTO, len(types))
	for i := range types {
		dtos[i] = mapper.ToNotificationTypeDTO(&types[i])
	}
	return dtos, nil
}
