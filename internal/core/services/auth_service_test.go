package services

import (
	"context"
	"errors"
	"net/textproto"
	"time"

	mailer "barangay-services/internal/adapters/mail"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/password"
	"barangay-services/internal/testutil"

	"go.uber.org/mock/gomock"
)

func (s *ServiceSuite) registerInput(username string) *RegisterInput {
	return &RegisterInput{
		Username:   username,
		Email:      "  " + username + "@Example.com ",
		Password:   "secret123",
		FirstName:  "Maria",
		LastName:   "Santos",
		BarangayID: s.region.Barangay.ID,
	}
}

func (s *ServiceSuite) TestRegisterValidation() {
	cases := []struct {
		name  string
		edit  func(*RegisterInput)
		field string
	}{
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"display name email", func(in *RegisterInput) { in.Email = "Maria <maria@example.com>" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "short" }, "password"},
		{"missing barangay", func(in *RegisterInput) { in.BarangayID = 0 }, "barangay_id"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			in := s.registerInput("maria")
			tc.edit(in)

			_, err := s.auth.Register(s.ctx, in)
			s.Require().ErrorIs(err, domain.ErrValidation)

			var ve *domain.ValidationError
			s.Require().True(errors.As(err, &ve))
			s.Equal(tc.field, ve.Field)
		})
	}

	s.Run("unknown barangay", func() {
		in := s.registerInput("maria")
		in.BarangayID = 9999
		_, err := s.auth.Register(s.ctx, in)
		s.ErrorIs(err, ErrBarangayNotFound)
	})
}

func (s *ServiceSuite) TestRegisterVerifyLogin() {
	token := s.expectMail("maria@example.com", verifyLinkRe)

	user, err := s.auth.Register(s.ctx, s.registerInput("maria"))
	s.Require().NoError(err)
	s.Equal("maria@example.com", user.Email)
	s.Equal(string(domain.RoleResident), user.Role)
	s.False(user.IsVerified)
	s.Require().NotEmpty(*token)

	s.Run("duplicate username or email", func() {
		_, err := s.auth.Register(s.ctx, s.registerInput("maria"))
		s.ErrorIs(err, ErrUserAlreadyExists)

		in := s.registerInput("maria2")
		in.Email = "maria@example.com"
		_, err = s.auth.Register(s.ctx, in)
		s.ErrorIs(err, ErrUserAlreadyExists)
	})

	s.Run("login before verification is refused", func() {
		_, err := s.auth.Login(s.ctx, &LoginInput{Username: "maria", Password: "secret123"})
		s.ErrorIs(err, ErrEmailNotVerified)
	})

	s.Run("verify then login by email", func() {
		verified, err := s.auth.VerifyEmail(s.ctx, *token)
		s.Require().NoError(err)
		s.True(verified.IsVerified)

		resp, err := s.auth.Login(s.ctx, &LoginInput{Username: "MARIA@example.com", Password: "secret123"})
		s.Require().NoError(err)
		s.NotEmpty(resp.AccessToken)
		s.NotEmpty(resp.RefreshToken)
		s.Require().NotNil(resp.User.BarangayID)
		s.Equal(s.region.Barangay.ID, *resp.User.BarangayID)
	})

	s.Run("verification link works once", func() {
		_, err := s.auth.VerifyEmail(s.ctx, *token)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)
	})

	s.Run("wrong password", func() {
		_, err := s.auth.Login(s.ctx, &LoginInput{Username: "maria", Password: "wrongpass"})
		s.ErrorIs(err, ErrInvalidCredentials)
	})
}

func (s *ServiceSuite) TestRegisterMailFailureRollsBack() {
	s.mailer.EXPECT().
		Send(gomock.Any(), "maria@example.com", gomock.Any(), gomock.Any()).
		Return(&textproto.Error{Code: 535, Msg: "5.7.8 Authentication credentials invalid"})

	_, err := s.auth.Register(s.ctx, s.registerInput("maria"))
	s.Require().Error(err)

	var de *mailer.DeliveryError
	s.Require().True(errors.As(err, &de))
	s.True(de.AuthFailure)

	exists, err := s.userRepo.ExistsByEmail(s.ctx, "maria@example.com")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ServiceSuite) TestMailSendIsBounded() {
	s.mailer.EXPECT().
		Send(gomock.Any(), "maria@example.com", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _, _ string) error {
			deadline, ok := ctx.Deadline()
			s.Require().True(ok, "mail context has no deadline")
			s.LessOrEqual(time.Until(deadline), MailTimeout)
			return nil
		})

	_, err := s.auth.Register(s.ctx, s.registerInput("maria"))
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestResendVerification() {
	first := s.expectMail("maria@example.com", verifyLinkRe)
	_, err := s.auth.Register(s.ctx, s.registerInput("maria"))
	s.Require().NoError(err)

	s.Run("unknown email succeeds silently", func() {
		s.NoError(s.auth.ResendVerification(s.ctx, "nobody@example.com"))
	})

	s.Run("failed delivery keeps the previous link", func() {
		s.mailer.EXPECT().
			Send(gomock.Any(), "maria@example.com", gomock.Any(), gomock.Any()).
			Return(errors.New("connection refused"))

		err := s.auth.ResendVerification(s.ctx, "maria@example.com")
		var de *mailer.DeliveryError
		s.Require().True(errors.As(err, &de))
		s.False(de.AuthFailure)

		stored, err := s.userRepo.GetByEmail(s.ctx, "maria@example.com")
		s.Require().NoError(err)
		s.Require().NotNil(stored.VerificationToken)
		s.Equal(password.HashToken(*first), *stored.VerificationToken)
	})

	second := s.expectMail("maria@example.com", verifyLinkRe)
	s.Require().NoError(s.auth.ResendVerification(s.ctx, "Maria@Example.com"))
	s.NotEqual(*first, *second)

	s.Run("new link supersedes the old one", func() {
		_, err := s.auth.VerifyEmail(s.ctx, *first)
		s.ErrorIs(err, ErrInvalidOrExpiredToken)

		_, err = s.auth.VerifyEmail(s.ctx, *second)
		s.NoError(err)
	})

	s.Run("verified account gets no mail", func() {
		s.NoError(s.auth.ResendVerification(s.ctx, "maria@example.com"))
	})
}

func (s *ServiceSuite) TestPasswordReset() {
	user := testutil.CreateUser(s.T(), s.db, "pedro", string(domain.RoleResident), &s.region.Barangay.ID)
	session, err := s.auth.Login(s.ctx, &LoginInput{Username: "pedro", Password: testutil.UserPassword})
	s.Require().NoError(err)

	s.Run("unknown email is reported", func() {
		s.ErrorIs(s.auth.ForgotPassword(s.ctx, "ghost@example.com"), ErrEmailNotFound)
	})

	s.Run("weak password is rejected before the token is spent", func() {
		token := s.expectMail(user.Email, resetLinkRe)
		s.Require().NoError(s.auth.ForgotPassword(s.ctx, user.Email))

		s.ErrorIs(s.auth.ResetPassword(s.ctx, *token, "short"), domain.ErrValidation)
		s.NoError(s.auth.ResetPassword(s.ctx, *token, "newsecret123"))
		s.ErrorIs(s.auth.ResetPassword(s.ctx, *token, "newsecret456"), ErrInvalidOrExpiredToken)
	})

	s.Run("reset revokes sessions", func() {
		_, err := s.auth.RefreshToken(s.ctx, session.RefreshToken)
		s.ErrorIs(err, ErrTokenRevoked)

		_, err = s.auth.Login(s.ctx, &LoginInput{Username: "pedro", Password: testutil.UserPassword})
		s.ErrorIs(err, ErrInvalidCredentials)

		_, err = s.auth.Login(s.ctx, &LoginInput{Username: "pedro", Password: "newsecret123"})
		s.NoError(err)
	})

	s.Run("reset link expires after an hour", func() {
		token := s.expectMail(user.Email, resetLinkRe)
		s.Require().NoError(s.auth.ForgotPassword(s.ctx, user.Email))

		s.advance(ResetTokenTTL + time.Second)
		s.ErrorIs(s.auth.ResetPassword(s.ctx, *token, "another123"), ErrInvalidOrExpiredToken)
	})
}

func (s *ServiceSuite) TestSessions() {
	testutil.CreateUser(s.T(), s.db, "rosa", string(domain.RoleResident), &s.region.Barangay.ID)

	login, err := s.auth.Login(s.ctx, &LoginInput{Username: "rosa", Password: testutil.UserPassword})
	s.Require().NoError(err)

	s.Run("refresh rotates the token", func() {
		rotated, err := s.auth.RefreshToken(s.ctx, login.RefreshToken)
		s.Require().NoError(err)
		s.NotEqual(login.RefreshToken, rotated.RefreshToken)

		_, err = s.auth.RefreshToken(s.ctx, login.RefreshToken)
		s.ErrorIs(err, ErrTokenRevoked)

		s.Require().NoError(s.auth.Logout(s.ctx, rotated.RefreshToken))
		_, err = s.auth.RefreshToken(s.ctx, rotated.RefreshToken)
		s.ErrorIs(err, ErrTokenRevoked)
	})

	s.Run("garbage refresh token", func() {
		_, err := s.auth.RefreshToken(s.ctx, "not-a-jwt")
		s.ErrorIs(err, ErrInvalidToken)
	})

	s.Run("suspended users cannot sign in", func() {
		suspended := testutil.CreateUser(s.T(), s.db, "sara", string(domain.RoleResident), nil)
		s.Require().NoError(s.userRepo.UpdateFields(s.ctx, suspended.ID, map[string]interface{}{
			"status": string(domain.UserStatusSuspended),
		}))

		_, err := s.auth.Login(s.ctx, &LoginInput{Username: "sara", Password: testutil.UserPassword})
		s.ErrorIs(err, ErrUserSuspended)
	})
}
