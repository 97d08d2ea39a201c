package repositories

import (
	"context"

	"barangay-services/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// notificationRepository implements NotificationRepository interface.
// Every per-row operation is scoped to the owning user.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *notificationRepository) WithTx(tx *gorm.DB) NotificationRepository {
	return &notificationRepository{db: tx}
}

// Create appends a notification
func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateBatch appends several notifications in one statement
func (r *notificationRepository) CreateBatch(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ns).Error
}

// ListByUser lists a user's notifications newest first
func (r *notificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error) {
	var notifications []*models.Notification
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&notifications).Error
	return notifications, err
}

// CountUnread counts a user's unread notifications
func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification as read. Returns gorm.ErrRecordNotFound
// when the user has no such notification.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id uint) error {
	var n models.Notification
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Take(&n).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Update("is_read", true).Error
}

// MarkAllRead marks all of a user's notifications as read
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("is_read = ?", false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// MarkReadByType marks notifications of notifType as read, or with invert
// every notification except that type
func (r *notificationRepository) MarkReadByType(ctx context.Context, userID uint, notifType string, invert bool) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("is_read = ?", false)
	if invert {
		query = query.Where("type <> ?", notifType)
	} else {
		query = query.Where("type = ?", notifType)
	}
	result := query.Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete removes one notification
func (r *notificationRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// DeleteAll removes every notification of a user
func (r *notificationRepository) DeleteAll(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
