package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/pagination"
	"barangay-services/internal/pkg/password"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrCannotSuspendSelf   = errors.New("cannot suspend your own account")
)

// UserService handles profile and account administration
type UserService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	regionRepo       repositories.RegionRepository
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	regionRepo repositories.RegionRepository,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		regionRepo:       regionRepo,
	}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page       int
	Limit      int
	Search     string
	Role       string
	Status     string
	BarangayID *uint
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users      []*models.UserResponse `json:"users"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Role       *string `json:"role"`
	Status     *string `json:"status"`
	BarangayID *uint   `json:"barangay_id"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsers lists users with pagination and filters
func (s *UserService) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	params := pagination.NewParams(input.Page, input.Limit)

	filter := repositories.UserFilter{
		Role:       input.Role,
		Status:     input.Status,
		BarangayID: input.BarangayID,
		Search:     strings.TrimSpace(input.Search),
	}

	users, total, err := s.userRepo.List(ctx, filter, params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}

	userResponses := make([]*models.UserResponse, len(users))
	for i, user := range users {
		userResponses[i] = user.ToResponse()
	}

	return &ListUsersOutput{
		Users:      userResponses,
		Total:      total,
		Page:       params.Page,
		Limit:      params.Limit,
		TotalPages: pagination.GetMeta(params, total).TotalPages,
	}, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByIDWithRegion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateUserByAdmin changes role, status or barangay of a user.
// Suspending a user revokes their sessions.
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id uint, adminID uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if id == adminID && input.Role != nil && *input.Role != user.Role {
		return nil, ErrCannotChangeOwnRole
	}

	if input.Role != nil {
		role := domain.Role(strings.ToLower(strings.TrimSpace(*input.Role)))
		if !role.IsValid() {
			return nil, domain.Invalid("role", "Role must be resident, moderator or admin")
		}
		user.Role = string(role)
	}

	suspended := false
	if input.Status != nil {
		status := domain.UserStatus(strings.ToLower(strings.TrimSpace(*input.Status)))
		if !status.IsValid() {
			return nil, domain.Invalid("status", "Status must be active or suspended")
		}
		if status == domain.UserStatusSuspended && id == adminID {
			return nil, ErrCannotSuspendSelf
		}
		suspended = status == domain.UserStatusSuspended && user.Status != string(status)
		user.Status = string(status)
	}

	if input.BarangayID != nil {
		if _, err := s.regionRepo.GetBarangay(ctx, *input.BarangayID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBarangayNotFound
			}
			return nil, err
		}
		user.BarangayID = input.BarangayID
	}

	if err := s.userRepo.UpdateFields(ctx, user.ID, map[string]interface{}{
		"role":        user.Role,
		"status":      user.Status,
		"barangay_id": user.BarangayID,
	}); err != nil {
		return nil, err
	}

	if suspended {
		if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, user.ID); err != nil {
			log.Printf("⚠️ Failed to revoke sessions of suspended user %d: %v", user.ID, err)
		}
	}

	return s.GetUserByID(ctx, user.ID)
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	return s.GetUserByID(ctx, userID)
}

// UpdateProfile updates own name and email
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{}

	if input.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if !validEmail(email) {
				return nil, domain.Invalid("email", "Email address is invalid")
			}
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailAlreadyExists
			}
			fields["email"] = email
		}
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
			return nil, err
		}
	}

	return s.GetUserByID(ctx, userID)
}

// ChangePassword changes own password and signs out other sessions
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}

	if !password.ValidatePassword(input.NewPassword) {
		return domain.Invalid("new_password", "New password must be at least %d characters", password.MinLength)
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"password": hashedPassword}); err != nil {
		return err
	}

	return s.refreshTokenRepo.RevokeAllByUserID(ctx, userID)
}
