package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/metrics"
	"barangay-services/internal/pkg/password"

	"gorm.io/gorm"
)

// ============================================================
// Token Service - single-use credential tokens
// ============================================================

// Token lifetimes
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = 1 * time.Hour
)

// ErrInvalidOrExpiredToken is returned for any token that cannot be consumed.
// Wrong, already used and expired tokens are deliberately indistinguishable.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

// IssuedToken is the plain token handed to the mailer
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenService issues, consumes and sweeps credential tokens stored on users
type TokenService struct {
	userRepo repositories.UserRepository
	metrics  *metrics.Metrics
	nowFn    func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(userRepo repositories.UserRepository, m *metrics.Metrics) *TokenService {
	return &TokenService{
		userRepo: userRepo,
		metrics:  m,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the clock, used by tests and the sweep job
func (s *TokenService) SetClock(nowFn func() time.Time) {
	s.nowFn = nowFn
}

// Now returns the service clock
func (s *TokenService) Now() time.Time {
	return s.nowFn()
}

// ttl returns the lifetime of a token purpose
func ttl(purpose domain.TokenPurpose) (time.Duration, error) {
	switch purpose {
	case domain.PurposeEmailVerification:
		return VerificationTokenTTL, nil
	case domain.PurposePasswordReset:
		return ResetTokenTTL, nil
	}
	return 0, fmt.Errorf("unknown token purpose %q", purpose)
}

// Issue generates a new token for purpose and stores its hash on the user,
// replacing any earlier token of the same purpose
func (s *TokenService) Issue(ctx context.Context, userID uint, purpose domain.TokenPurpose) (*IssuedToken, error) {
	return s.IssueTx(ctx, nil, userID, purpose)
}

// IssueTx is Issue inside the caller's transaction. A nil tx uses the default connection.
func (s *TokenService) IssueTx(ctx context.Context, tx *gorm.DB, userID uint, purpose domain.TokenPurpose) (*IssuedToken, error) {
	lifetime, err := ttl(purpose)
	if err != nil {
		return nil, err
	}

	token, err := password.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	expiresAt := s.nowFn().Add(lifetime)

	repo := s.userRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	if err := repo.SetToken(ctx, userID, purpose, password.HashToken(token), expiresAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(string(purpose)).Inc()
	}

	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}

// Consume redeems token for purpose. effects are extra column updates applied
// in the same statement that clears the token.
func (s *TokenService) Consume(ctx context.Context, token string, purpose domain.TokenPurpose, effects map[string]interface{}) (*models.User, error) {
	if token == "" {
		s.recordConsume(purpose, "invalid")
		return nil, ErrInvalidOrExpiredToken
	}

	user, err := s.userRepo.ConsumeToken(ctx, purpose, password.HashToken(token), s.nowFn(), effects)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordConsume(purpose, "invalid")
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	s.recordConsume(purpose, "ok")
	return user, nil
}

// SweepExpiredUnverified deletes unverified users whose verification token
// expired. Safe to run concurrently with verification.
func (s *TokenService) SweepExpiredUnverified(ctx context.Context) (int64, error) {
	deleted, err := s.userRepo.DeleteExpiredUnverified(ctx, s.nowFn())
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		log.Printf("🧹 Removed %d unverified account(s) with expired verification tokens", deleted)
		if s.metrics != nil {
			s.metrics.UnverifiedSwept.Add(float64(deleted))
		}
	}
	return deleted, nil
}

func (s *TokenService) recordConsume(purpose domain.TokenPurpose, result string) {
	if s.metrics != nil {
		s.metrics.TokensConsumed.WithLabelValues(string(purpose), result).Inc()
	}
}
