package repositories

import (
	"context"
	"errors"
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUnknownTokenPurpose is returned for a purpose with no token columns
var ErrUnknownTokenPurpose = errors.New("unknown token purpose")

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDWithRegion gets a user with barangay and municipality loaded
func (r *userRepository) GetByIDWithRegion(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Barangay.Municipality").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername gets a user by username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Barangay").Save(user).Error
}

// UpdateFields updates selected columns of a user
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List lists users with pagination
func (r *userRepository) List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.BarangayID != nil {
		query = query.Where("barangay_id = ?", *filter.BarangayID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like, like)
	}

	// Count total
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get users with pagination
	if err := query.
		Preload("Barangay.Municipality").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExistsByUsername checks if username exists
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// tokenColumns maps a purpose to its hash and expiry columns
func tokenColumns(purpose domain.TokenPurpose) (string, string, error) {
	switch purpose {
	case domain.PurposeEmailVerification:
		return "verification_token", "verification_token_expires", nil
	case domain.PurposePasswordReset:
		return "reset_token", "reset_token_expires", nil
	}
	return "", "", ErrUnknownTokenPurpose
}

// SetToken stores a token hash for purpose, replacing any previous one
func (r *userRepository) SetToken(ctx context.Context, userID uint, purpose domain.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	hashCol, expiresCol, err := tokenColumns(purpose)
	if err != nil {
		return err
	}

	return r.UpdateFields(ctx, userID, map[string]interface{}{
		hashCol:    tokenHash,
		expiresCol: expiresAt,
	})
}

// ConsumeToken locks the user holding a live token, applies effects and
// clears the token in one UPDATE. Returns gorm.ErrRecordNotFound when no
// live token matches.
func (r *userRepository) ConsumeToken(ctx context.Context, purpose domain.TokenPurpose, tokenHash string, now time.Time, effects map[string]interface{}) (*models.User, error) {
	hashCol, expiresCol, err := tokenColumns(purpose)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(hashCol+" = ?", tokenHash).
			Where(expiresCol+" > ?", now).
			Take(&user).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			hashCol:    nil,
			expiresCol: nil,
		}
		for k, v := range effects {
			updates[k] = v
		}

		return tx.Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, user.ID)
}

// DeleteExpiredUnverified deletes unverified users whose verification token
// has expired. The verified check is part of the DELETE so a user verifying
// concurrently is never removed.
func (r *userRepository) DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_verified = ?", false).
		Where("verification_token_expires IS NOT NULL").
		Where("verification_token_expires < ?", now).
		Delete(&models.User{})
	return result.RowsAffected, result.Error
}
