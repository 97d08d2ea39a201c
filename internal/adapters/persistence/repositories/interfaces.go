package repositories

import (
	"context"
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"

	"gorm.io/gorm"
)

// UserRepository defines user repository interface
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDWithRegion(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Credential tokens
	SetToken(ctx context.Context, userID uint, purpose domain.TokenPurpose, tokenHash string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, purpose domain.TokenPurpose, tokenHash string, now time.Time, effects map[string]interface{}) (*models.User, error)
	DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error)
}

// UserFilter narrows admin user listings
type UserFilter struct {
	Role       string
	Status     string
	BarangayID *uint
	Search     string
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountActiveByUserID(ctx context.Context, userID uint) (int64, error)
}

// RegionRepository is the read side of the municipality/barangay directory
type RegionRepository interface {
	WithTx(tx *gorm.DB) RegionRepository
	GetBarangay(ctx context.Context, id uint) (*models.Barangay, error)
	ListBarangays(ctx context.Context, municipalityID *uint) ([]*models.Barangay, error)
	ListMunicipalities(ctx context.Context) ([]*models.Municipality, error)
	ListModeratorIDs(ctx context.Context, barangayID uint) ([]uint, error)
}

// CertificateRepository defines certificate request repository interface
type CertificateRepository interface {
	WithTx(tx *gorm.DB) CertificateRepository
	Create(ctx context.Context, req *models.CertificateRequest) error
	CreateAttachments(ctx context.Context, attachments []models.CertificateAttachment) error
	GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error)
	GetForUpdate(ctx context.Context, id uint) (*models.CertificateRequest, error)
	UpdateStatus(ctx context.Context, id uint, status domain.CertificateStatus) error
	Delete(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context, filter CertificateFilter, offset, limit int) ([]*models.CertificateRequest, int64, error)
	ListByUser(ctx context.Context, userID uint) ([]*models.CertificateRequest, error)
}

// CertificateFilter narrows certificate request listings
type CertificateFilter struct {
	Status     string
	BarangayID *uint
}

// NotificationRepository defines the per-user notification feed
type NotificationRepository interface {
	WithTx(tx *gorm.DB) NotificationRepository
	Create(ctx context.Context, n *models.Notification) error
	CreateBatch(ctx context.Context, ns []*models.Notification) error
	ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, id uint) error
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	MarkReadByType(ctx context.Context, userID uint, notifType string, invert bool) (int64, error)
	Delete(ctx context.Context, userID, id uint) (int64, error)
	DeleteAll(ctx context.Context, userID uint) (int64, error)
}

// InboxRepository defines the durable resident inbox
type InboxRepository interface {
	WithTx(tx *gorm.DB) InboxRepository
	Create(ctx context.Context, msg *models.ResidentInbox) error
	ListByUser(ctx context.Context, userID uint) ([]*models.ResidentInboxEntry, error)
	MarkRead(ctx context.Context, userID, id uint) error
	Delete(ctx context.Context, userID, id uint) (int64, error)
}
