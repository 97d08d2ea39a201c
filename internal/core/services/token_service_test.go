package services

import (
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/password"
	"barangay-services/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func (s *ServiceSuite) unverifiedUser(username string) *models.User {
	user := testutil.CreateUser(s.T(), s.db, username, string(domain.RoleResident), &s.region.Barangay.ID)
	s.Require().NoError(s.db.Model(user).Update("is_verified", false).Error)
	return user
}

func (s *ServiceSuite) TestTokenIssue() {
	s.Run("stores only the hash with the purpose lifetime", func() {
		user := s.unverifiedUser("ana")

		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)
		s.Len(issued.Token, 64)
		s.Equal(s.now.Add(VerificationTokenTTL), issued.ExpiresAt)

		stored, err := s.userRepo.GetByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Require().NotNil(stored.VerificationToken)
		s.Equal(password.HashToken(issued.Token), *stored.VerificationToken)
		s.NotEqual(issued.Token, *stored.VerificationToken)
		s.Nil(stored.ResetToken)
	})

	s.Run("reset tokens live one hour", func() {
		user := testutil.CreateUser(s.T(), s.db, "ben", string(domain.RoleResident), nil)

		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposePasswordReset)
		s.Require().NoError(err)
		s.Equal(s.now.Add(time.Hour), issued.ExpiresAt)
	})

	s.Run("unknown user", func() {
		_, err := s.tokens.Issue(s.ctx, 9999, domain.PurposePasswordReset)
		s.ErrorIs(err, ErrUserNotFound)
	})

	s.Run("unknown purpose", func() {
		user := testutil.CreateUser(s.T(), s.db, "cara", string(domain.RoleResident), nil)
		_, err := s.tokens.Issue(s.ctx, user.ID, domain.TokenPurpose("magic-link"))
		s.Error(err)
	})
}

func (s *ServiceSuite) TestTokenConsume() {
	verified := map[string]interface{}{"is_verified": true}

	s.Run("is single use", func() {
		user := s.unverifiedUser("dina")
		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)

		got, err := s.tokens.Consume(s.ctx, issued.Token, domain.PurposeEmailVerification, verified)
		s.Require().NoError(err)
		s.Equal(user.ID, got.ID)
		s.True(got.IsVerified)
		s.Nil(got.VerificationToken)
		s.Nil(got.VerificationTokenExpires)

		_, err = s.tokens.Consume(s.ctx, issued.Token, domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)
	})

	s.Run("rejects an expired token", func() {
		user := s.unverifiedUser("eli")
		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)

		s.advance(VerificationTokenTTL + time.Second)

		_, err = s.tokens.Consume(s.ctx, issued.Token, domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)

		stored, err := s.userRepo.GetByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.False(stored.IsVerified)
	})

	s.Run("re-issue supersedes the previous token", func() {
		user := s.unverifiedUser("fe")
		first, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)
		second, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)
		s.NotEqual(first.Token, second.Token)

		_, err = s.tokens.Consume(s.ctx, first.Token, domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)

		_, err = s.tokens.Consume(s.ctx, second.Token, domain.PurposeEmailVerification, verified)
		s.NoError(err)
	})

	s.Run("purposes do not cross", func() {
		user := testutil.CreateUser(s.T(), s.db, "gina", string(domain.RoleResident), nil)
		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposePasswordReset)
		s.Require().NoError(err)

		_, err = s.tokens.Consume(s.ctx, issued.Token, domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)

		_, err = s.tokens.Consume(s.ctx, issued.Token, domain.PurposePasswordReset, nil)
		s.NoError(err)
	})

	s.Run("rejects tampered and empty tokens", func() {
		user := s.unverifiedUser("hugo")
		issued, err := s.tokens.Issue(s.ctx, user.ID, domain.PurposeEmailVerification)
		s.Require().NoError(err)

		tampered := []byte(issued.Token)
		if tampered[0] == 'a' {
			tampered[0] = 'b'
		} else {
			tampered[0] = 'a'
		}

		_, err = s.tokens.Consume(s.ctx, string(tampered), domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)

		_, err = s.tokens.Consume(s.ctx, "", domain.PurposeEmailVerification, verified)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)
	})

	s.Run("records consumption results", func() {
		ok := promtest.ToFloat64(s.metrics.TokensConsumed.WithLabelValues(string(domain.PurposeEmailVerification), "ok"))
		invalid := promtest.ToFloat64(s.metrics.TokensConsumed.WithLabelValues(string(domain.PurposeEmailVerification), "invalid"))
		s.GreaterOrEqual(ok, 2.0)
		s.GreaterOrEqual(invalid, 4.0)
	})
}

func (s *ServiceSuite) TestSweepExpiredUnverified() {
	pending := s.unverifiedUser("ivan")
	_, err := s.tokens.Issue(s.ctx, pending.ID, domain.PurposeEmailVerification)
	s.Require().NoError(err)

	verifiedLater := s.unverifiedUser("joy")
	issued, err := s.tokens.Issue(s.ctx, verifiedLater.ID, domain.PurposeEmailVerification)
	s.Require().NoError(err)
	_, err = s.tokens.Consume(s.ctx, issued.Token, domain.PurposeEmailVerification, map[string]interface{}{"is_verified": true})
	s.Require().NoError(err)

	fixture := testutil.CreateUser(s.T(), s.db, "kim", string(domain.RoleResident), nil)

	s.Run("keeps accounts whose token is still live", func() {
		deleted, err := s.tokens.SweepExpiredUnverified(s.ctx)
		s.Require().NoError(err)
		s.Zero(deleted)
	})

	s.Run("removes only unverified accounts with expired tokens", func() {
		s.advance(VerificationTokenTTL + time.Minute)

		deleted, err := s.tokens.SweepExpiredUnverified(s.ctx)
		s.Require().NoError(err)
		s.EqualValues(1, deleted)

		_, err = s.userRepo.GetByID(s.ctx, pending.ID)
		s.Error(err)

		for _, id := range []uint{verifiedLater.ID, fixture.ID} {
			_, err = s.userRepo.GetByID(s.ctx, id)
			s.NoError(err)
		}
		s.Equal(1.0, promtest.ToFloat64(s.metrics.UnverifiedSwept))
	})
}
