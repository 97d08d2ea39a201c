package repositories

import (
	"context"

	"barangay-services/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// inboxRepository implements InboxRepository interface
type inboxRepository struct {
	db *gorm.DB
}

// NewInboxRepository creates a new resident inbox repository
func NewInboxRepository(db *gorm.DB) InboxRepository {
	return &inboxRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *inboxRepository) WithTx(tx *gorm.DB) InboxRepository {
	return &inboxRepository{db: tx}
}

// Create stores an inbox message
func (r *inboxRepository) Create(ctx context.Context, msg *models.ResidentInbox) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByUser lists a user's inbox newest first, joined with the live request
func (r *inboxRepository) ListByUser(ctx context.Context, userID uint) ([]*models.ResidentInboxEntry, error) {
	var entries []*models.ResidentInboxEntry
	err := r.db.WithContext(ctx).
		Table("resident_inbox AS ri").
		Select(`ri.id, ri.user_id, ri.type, ri.title, ri.body, ri.certificate_request_id, ri.is_read, ri.created_at,
			cr.certificate_type, cr.purpose, cr.full_name, cr.civil_status, cr.address, cr.contact_number,
			cr.barangay_name, cr.municipality_name, cr.status AS certificate_status`).
		Joins("LEFT JOIN certificate_requests AS cr ON cr.id = ri.certificate_request_id").
		Where("ri.user_id = ?", userID).
		Order("ri.created_at DESC").
		Order("ri.id DESC").
		Scan(&entries).Error
	return entries, err
}

// MarkRead marks one inbox message as read. Returns gorm.ErrRecordNotFound
// when the user has no such message.
func (r *inboxRepository) MarkRead(ctx context.Context, userID, id uint) error {
	var msg models.ResidentInbox
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Take(&msg).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.ResidentInbox{}).
		Where("id = ?", msg.ID).
		Update("is_read", true).Error
}

// Delete removes one inbox message
func (r *inboxRepository) Delete(ctx context.Context, userID, id uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Delete(&models.ResidentInbox{})
	return result.RowsAffected, result.Error
}
