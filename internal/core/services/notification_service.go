package services

import (
	"context"
	"errors"
	"strings"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/metrics"

	"gorm.io/gorm"
)

// Notification errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInboxMessageNotFound = errors.New("inbox message not found")
)

// NotificationService is the per-user notification feed. Rows are never
// deduplicated; every operation on a row is scoped to its recipient.
type NotificationService struct {
	notifRepo repositories.NotificationRepository
	metrics   *metrics.Metrics
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifRepo repositories.NotificationRepository, m *metrics.Metrics) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		metrics:   m,
	}
}

// Append adds a notification for recipient
func (s *NotificationService) Append(ctx context.Context, recipientID uint, notifType, message string, referenceID *uint) (*models.Notification, error) {
	notifType = strings.TrimSpace(notifType)
	if notifType == "" {
		return nil, domain.Invalid("type", "Notification type is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, domain.Invalid("message", "Notification message is required")
	}

	n := &models.Notification{
		UserID:      recipientID,
		Type:        notifType,
		Message:     message,
		ReferenceID: referenceID,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncNotifications(notifType, 1)
	}
	return n, nil
}

// ListForUser lists a user's notifications newest first
func (s *NotificationService) ListForUser(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, unreadOnly)
}

// UnreadCount counts a user's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	if err := s.notifRepo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

// MarkAllRead marks every notification of the user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

// MarkReadByType marks notifications of notifType as read. With invert every
// notification except that type is marked instead.
func (s *NotificationService) MarkReadByType(ctx context.Context, userID uint, notifType string, invert bool) (int64, error) {
	notifType = strings.TrimSpace(notifType)
	if notifType == "" {
		return 0, domain.Invalid("type", "Notification type is required")
	}
	return s.notifRepo.MarkReadByType(ctx, userID, notifType, invert)
}

// Delete removes one of the user's notifications
func (s *NotificationService) Delete(ctx context.Context, userID, id uint) error {
	affected, err := s.notifRepo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// ClearAll removes every notification of the user
func (s *NotificationService) ClearAll(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.DeleteAll(ctx, userID)
}

// InboxService serves the durable resident inbox
type InboxService struct {
	inboxRepo repositories.InboxRepository
}

// NewInboxService creates a new inbox service
func NewInboxService(inboxRepo repositories.InboxRepository) *InboxService {
	return &InboxService{inboxRepo: inboxRepo}
}

// ListForUser lists a user's inbox joined with live certificate details
func (s *InboxService) ListForUser(ctx context.Context, userID uint) ([]*models.ResidentInboxEntry, error) {
	return s.inboxRepo.ListByUser(ctx, userID)
}

// MarkRead marks one of the user's inbox messages as read
func (s *InboxService) MarkRead(ctx context.Context, userID, id uint) error {
	if err := s.inboxRepo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInboxMessageNotFound
		}
		return err
	}
	return nil
}

// Delete removes one of the user's inbox messages
func (s *InboxService) Delete(ctx context.Context, userID, id uint) error {
	affected, err := s.inboxRepo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInboxMessageNotFound
	}
	return nil
}
