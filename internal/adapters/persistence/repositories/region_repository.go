package repositories

import (
	"context"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"

	"gorm.io/gorm"
)

// regionRepository implements RegionRepository interface.
// Municipalities and barangays are reference data and read-only here.
type regionRepository struct {
	db *gorm.DB
}

// NewRegionRepository creates a new region repository
func NewRegionRepository(db *gorm.DB) RegionRepository {
	return &regionRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *regionRepository) WithTx(tx *gorm.DB) RegionRepository {
	return &regionRepository{db: tx}
}

// GetBarangay gets a barangay with its municipality
func (r *regionRepository) GetBarangay(ctx context.Context, id uint) (*models.Barangay, error) {
	var barangay models.Barangay
	err := r.db.WithContext(ctx).
		Preload("Municipality").
		Where("id = ?", id).
		First(&barangay).Error
	if err != nil {
		return nil, err
	}
	return &barangay, nil
}

// ListBarangays lists barangays, optionally within one municipality
func (r *regionRepository) ListBarangays(ctx context.Context, municipalityID *uint) ([]*models.Barangay, error) {
	var barangays []*models.Barangay
	query := r.db.WithContext(ctx).Preload("Municipality")
	if municipalityID != nil {
		query = query.Where("municipality_id = ?", *municipalityID)
	}
	err := query.Order("name ASC").Find(&barangays).Error
	return barangays, err
}

// ListMunicipalities lists all municipalities
func (r *regionRepository) ListMunicipalities(ctx context.Context) ([]*models.Municipality, error) {
	var municipalities []*models.Municipality
	err := r.db.WithContext(ctx).Order("name ASC").Find(&municipalities).Error
	return municipalities, err
}

// ListModeratorIDs returns the moderator set of a barangay
func (r *regionRepository) ListModeratorIDs(ctx context.Context, barangayID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", string(domain.RoleModerator)).
		Where("barangay_id = ?", barangayID).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}
