package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	mailer "barangay-services/internal/adapters/mail"
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/config"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/jwt"
	"barangay-services/internal/pkg/metrics"
	"barangay-services/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrBarangayNotFound   = errors.New("barangay not found")
	ErrEmailNotFound      = errors.New("no account found with that email")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrUserSuspended      = errors.New("user account is suspended")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
)

// MailTimeout bounds a single outgoing mail
const MailTimeout = 15 * time.Second

// ResendVerificationMessage is returned whether or not the email matched an account
const ResendVerificationMessage = "If an unverified account exists for that email, a new verification link has been sent"

// AuthService handles authentication business logic
type AuthService struct {
	db               *gorm.DB
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	regionRepo       repositories.RegionRepository
	tokens           *TokenService
	mailer           mailer.Mailer
	metrics          *metrics.Metrics
	cfg              *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	regionRepo repositories.RegionRepository,
	tokens *TokenService,
	m mailer.Mailer,
	metrics *metrics.Metrics,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		db:               db,
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		regionRepo:       regionRepo,
		tokens:           tokens,
		mailer:           m,
		metrics:          metrics,
		cfg:              cfg,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	BarangayID uint   `json:"barangay_id"`
}

// Validate checks required fields and formats
func (in *RegisterInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if len(in.Username) < 3 || len(in.Username) > 50 {
		return domain.Invalid("username", "Username must be between 3 and 50 characters")
	}
	if !validEmail(in.Email) {
		return domain.Invalid("email", "Email address is invalid")
	}
	if !password.ValidatePassword(in.Password) {
		return domain.Invalid("password", "Password must be at least 8 characters")
	}
	if in.BarangayID == 0 {
		return domain.Invalid("barangay_id", "Barangay is required")
	}
	return nil
}

// validEmail accepts a bare address such as juan@example.com
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// LoginInput represents login input. Username may also be an email address.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register creates an unverified resident and mails a verification link.
// The account is only kept if the mail was accepted by the relay.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*models.UserResponse, error) {
	// 1. Validate input
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// 2. Check barangay exists
	if _, err := s.regionRepo.GetBarangay(ctx, input.BarangayID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBarangayNotFound
		}
		return nil, err
	}

	// 3. Check username / email are free
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	// 4. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	barangayID := input.BarangayID
	user := &models.User{
		Username:   input.Username,
		Email:      input.Email,
		Password:   hashedPassword,
		FirstName:  input.FirstName,
		LastName:   input.LastName,
		Role:       string(domain.RoleResident),
		Status:     string(domain.UserStatusActive),
		BarangayID: &barangayID,
		IsVerified: false,
	}

	// 5. Create user, issue token and send mail atomically
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}

		issued, err := s.tokens.IssueTx(ctx, tx, user.ID, domain.PurposeEmailVerification)
		if err != nil {
			return err
		}

		return s.sendVerification(ctx, user, issued.Token)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}

	log.Printf("✅ User registered: %s (pending verification)", user.Username)
	return user.ToResponse(), nil
}

// VerifyEmail consumes a verification token and marks the user verified
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.UserResponse, error) {
	user, err := s.tokens.Consume(ctx, token, domain.PurposeEmailVerification, map[string]interface{}{
		"is_verified": true,
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Email verified for user: %s", user.Username)
	return user.ToResponse(), nil
}

// ResendVerification re-issues the verification token of an unverified
// account. Unknown and already verified emails succeed silently.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Invalid("email", "Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.IsVerified {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issued, err := s.tokens.IssueTx(ctx, tx, user.ID, domain.PurposeEmailVerification)
		if err != nil {
			return err
		}
		return s.sendVerification(ctx, user, issued.Token)
	})
}

// ForgotPassword mails a reset link. Unlike ResendVerification an unknown
// email is reported as ErrEmailNotFound.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Invalid("email", "Email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEmailNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issued, err := s.tokens.IssueTx(ctx, tx, user.ID, domain.PurposePasswordReset)
		if err != nil {
			return err
		}

		html, err := mailer.RenderPasswordReset(displayName(user), s.cfg.App.FrontendURL+"/reset-password/"+issued.Token)
		if err != nil {
			return err
		}
		return s.deliver(ctx, user.Email, mailer.SubjectPasswordReset, html)
	})
}

// ResetPassword consumes a reset token, sets the new password and signs the
// user out everywhere
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if !password.ValidatePassword(newPassword) {
		return domain.Invalid("password", "Password must be at least 8 characters")
	}

	hashedPassword, err := password.Hash(newPassword)
	if err != nil {
		return err
	}

	user, err := s.tokens.Consume(ctx, token, domain.PurposePasswordReset, map[string]interface{}{
		"password": hashedPassword,
	})
	if err != nil {
		return err
	}

	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, user.ID); err != nil {
		log.Printf("⚠️ Failed to revoke sessions after password reset for user %d: %v", user.ID, err)
	}

	log.Printf("✅ Password reset for user: %s", user.Username)
	return nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	identifier := strings.TrimSpace(input.Username)

	// 1. Find user by username or email
	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(identifier))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	// 3. Check account state
	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Username)
	return resp, nil
}

// RefreshToken refreshes the access token using refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	// 2. Find token in DB
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if storedToken.IsRevoked() {
		return nil, ErrTokenRevoked
	}
	if storedToken.IsExpired() {
		return nil, ErrTokenExpired
	}

	// 3. Get user
	user, err := s.userRepo.GetByIDWithRegion(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	// 4. Revoke old refresh token (Token Rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, err
	}

	resp, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Token refreshed for user: %s", user.Username)
	return resp, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
		return err
	}

	log.Printf("✅ User logged out")
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return err
	}

	log.Printf("✅ All sessions revoked for user ID: %d", userID)
	return nil
}

// GetUserByID gets a user with region by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByIDWithRegion(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// checkAccountState rejects accounts that may not hold a session
func checkAccountState(user *models.User) error {
	if user.Status == string(domain.UserStatusSuspended) {
		return ErrUserSuspended
	}
	if !user.IsVerified {
		return ErrEmailNotVerified
	}
	return nil
}

// issueSession generates and stores a token pair for user
func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}

	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Username,
		user.Role,
		user.BarangayID,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores a refresh token in the database
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays).UTC(),
	}

	return s.refreshTokenRepo.Create(ctx, token)
}

// sendVerification mails the verification link for token
func (s *AuthService) sendVerification(ctx context.Context, user *models.User, token string) error {
	html, err := mailer.RenderVerification(displayName(user), s.cfg.App.PublicURL+"/verify-email/"+token)
	if err != nil {
		return err
	}
	return s.deliver(ctx, user.Email, mailer.SubjectVerification, html)
}

// deliver sends mail and normalises failures to *mail.DeliveryError. The send
// is bounded by MailTimeout since it runs inside the token transaction.
func (s *AuthService) deliver(ctx context.Context, to, subject, html string) error {
	ctx, cancel := context.WithTimeout(ctx, MailTimeout)
	defer cancel()

	if err := s.mailer.Send(ctx, to, subject, html); err != nil {
		de := mailer.Classify(err)
		if s.metrics != nil {
			s.metrics.IncMailFailure(de.AuthFailure)
		}
		return de
	}
	return nil
}

// displayName prefers the first name over the username
func displayName(user *models.User) string {
	if user.FirstName != "" {
		return user.FirstName
	}
	return user.Username
}
