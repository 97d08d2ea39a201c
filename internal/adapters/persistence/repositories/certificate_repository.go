package repositories

import (
	"context"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// certificateRepository implements CertificateRepository interface
type certificateRepository struct {
	db *gorm.DB
}

// NewCertificateRepository creates a new certificate request repository
func NewCertificateRepository(db *gorm.DB) CertificateRepository {
	return &certificateRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *certificateRepository) WithTx(tx *gorm.DB) CertificateRepository {
	return &certificateRepository{db: tx}
}

// Create creates a new certificate request without its associations
func (r *certificateRepository) Create(ctx context.Context, req *models.CertificateRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

// CreateAttachments stores attachment references
func (r *certificateRepository) CreateAttachments(ctx context.Context, attachments []models.CertificateAttachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&attachments).Error
}

// GetByID gets a certificate request with attachments and requester
func (r *certificateRepository) GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	var req models.CertificateRequest
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Preload("Requester").
		First(&req, id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetForUpdate reads a request under a row lock. Must run inside a transaction.
func (r *certificateRepository) GetForUpdate(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	var req models.CertificateRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a Pending request to status. A request that is no
// longer Pending is left untouched and domain.ErrConflict is returned.
func (r *certificateRepository) UpdateStatus(ctx context.Context, id uint, status domain.CertificateStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.CertificateRequest{}).
		Where("id = ?", id).
		Where("status = ?", string(domain.CertificatePending)).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// Delete hard deletes a request and its attachment rows
func (r *certificateRepository) Delete(ctx context.Context, id uint) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("certificate_request_id = ?", id).
			Delete(&models.CertificateAttachment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.CertificateRequest{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	return affected, err
}

// List lists certificate requests newest first
func (r *certificateRepository) List(ctx context.Context, filter CertificateFilter, offset, limit int) ([]*models.CertificateRequest, int64, error) {
	var requests []*models.CertificateRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.CertificateRequest{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BarangayID != nil {
		query = query.Where("barangay_id = ?", *filter.BarangayID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Attachments").
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&requests).Error

	return requests, total, err
}

// ListByUser lists a resident's own requests newest first
func (r *certificateRepository) ListByUser(ctx context.Context, userID uint) ([]*models.CertificateRequest, error) {
	var requests []*models.CertificateRequest
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&requests).Error
	return requests, err
}
