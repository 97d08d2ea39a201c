package services

import (
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/testutil"
)

func (s *ServiceSuite) TestListUsers() {
	testutil.CreateUser(s.T(), s.db, "admin", string(domain.RoleAdmin), nil)
	testutil.CreateUser(s.T(), s.db, "lito", string(domain.RoleModerator), &s.region.Barangay.ID)
	testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	testutil.CreateUser(s.T(), s.db, "ana", string(domain.RoleResident), &s.region.Other.ID)

	out, err := s.users.ListUsers(s.ctx, &ListUsersInput{Page: 1, Limit: 2})
	s.Require().NoError(err)
	s.EqualValues(4, out.Total)
	s.Len(out.Users, 2)
	s.Equal(2, out.TotalPages)

	out, err = s.users.ListUsers(s.ctx, &ListUsersInput{Role: "resident", BarangayID: &s.region.Barangay.ID})
	s.Require().NoError(err)
	s.Require().Len(out.Users, 1)
	s.Equal("juan", out.Users[0].Username)
	s.Equal("Poblacion", out.Users[0].BarangayName)
	s.Equal("Santa Maria", out.Users[0].MunicipalityName)

	out, err = s.users.ListUsers(s.ctx, &ListUsersInput{Search: " li "})
	s.Require().NoError(err)
	s.Require().Len(out.Users, 1)
	s.Equal("lito", out.Users[0].Username)
}

func (s *ServiceSuite) TestUpdateUserByAdmin() {
	admin := testutil.CreateUser(s.T(), s.db, "admin", string(domain.RoleAdmin), nil)
	juan := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)

	str := func(v string) *string { return &v }

	s.Run("promote and move", func() {
		got, err := s.users.UpdateUserByAdmin(s.ctx, juan.ID, admin.ID, &UpdateUserByAdminInput{
			Role:       str("Moderator"),
			BarangayID: &s.region.Other.ID,
		})
		s.Require().NoError(err)
		s.Equal(string(domain.RoleModerator), got.Role)
		s.Equal("San Jose", got.BarangayName)

		ids, err := repositories.NewRegionRepository(s.db).ListModeratorIDs(s.ctx, s.region.Other.ID)
		s.Require().NoError(err)
		s.Contains(ids, juan.ID)
	})

	s.Run("invalid values", func() {
		_, err := s.users.UpdateUserByAdmin(s.ctx, juan.ID, admin.ID, &UpdateUserByAdminInput{Role: str("mayor")})
		s.ErrorIs(err, domain.ErrValidation)

		_, err = s.users.UpdateUserByAdmin(s.ctx, juan.ID, admin.ID, &UpdateUserByAdminInput{Status: str("banned")})
		s.ErrorIs(err, domain.ErrValidation)

		missing := uint(9999)
		_, err = s.users.UpdateUserByAdmin(s.ctx, juan.ID, admin.ID, &UpdateUserByAdminInput{BarangayID: &missing})
		s.ErrorIs(err, ErrBarangayNotFound)

		_, err = s.users.UpdateUserByAdmin(s.ctx, missing, admin.ID, &UpdateUserByAdminInput{})
		s.ErrorIs(err, ErrUserNotFound)
	})

	s.Run("admins cannot demote or suspend themselves", func() {
		_, err := s.users.UpdateUserByAdmin(s.ctx, admin.ID, admin.ID, &UpdateUserByAdminInput{Role: str("resident")})
		s.ErrorIs(err, ErrCannotChangeOwnRole)

		_, err = s.users.UpdateUserByAdmin(s.ctx, admin.ID, admin.ID, &UpdateUserByAdminInput{Status: str("suspended")})
		s.ErrorIs(err, ErrCannotSuspendSelf)
	})

	s.Run("suspension revokes sessions", func() {
		session, err := s.auth.Login(s.ctx, &LoginInput{Username: "juan", Password: testutil.UserPassword})
		s.Require().NoError(err)

		got, err := s.users.UpdateUserByAdmin(s.ctx, juan.ID, admin.ID, &UpdateUserByAdminInput{Status: str("suspended")})
		s.Require().NoError(err)
		s.Equal(string(domain.UserStatusSuspended), got.Status)

		_, err = s.auth.RefreshToken(s.ctx, session.RefreshToken)
		s.Error(err)
	})

	s.Run("suspension stands when sessions cannot be revoked", func() {
		ana := testutil.CreateUser(s.T(), s.db, "ana", string(domain.RoleResident), &s.region.Barangay.ID)
		s.Require().NoError(s.db.Migrator().DropTable(&models.RefreshToken{}))

		got, err := s.users.UpdateUserByAdmin(s.ctx, ana.ID, admin.ID, &UpdateUserByAdminInput{Status: str("suspended")})
		s.Require().NoError(err)
		s.Equal(string(domain.UserStatusSuspended), got.Status)
	})
}

func (s *ServiceSuite) TestProfile() {
	juan := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	testutil.CreateUser(s.T(), s.db, "ana", string(domain.RoleResident), &s.region.Barangay.ID)

	str := func(v string) *string { return &v }

	s.Run("update name and email", func() {
		got, err := s.users.UpdateProfile(s.ctx, juan.ID, &UpdateProfileInput{
			FirstName: str(" Juan "),
			Email:     str("Juan.Cruz@Example.com"),
		})
		s.Require().NoError(err)
		s.Equal("Juan", got.FirstName)
		s.Equal("juan.cruz@example.com", got.Email)
	})

	s.Run("email rules", func() {
		_, err := s.users.UpdateProfile(s.ctx, juan.ID, &UpdateProfileInput{Email: str("ana@example.com")})
		s.ErrorIs(err, ErrEmailAlreadyExists)

		_, err = s.users.UpdateProfile(s.ctx, juan.ID, &UpdateProfileInput{Email: str("nope")})
		s.ErrorIs(err, domain.ErrValidation)
	})

	s.Run("change password", func() {
		err := s.users.ChangePassword(s.ctx, juan.ID, &ChangePasswordInput{OldPassword: "wrong", NewPassword: "newsecret123"})
		s.ErrorIs(err, ErrOldPasswordWrong)

		err = s.users.ChangePassword(s.ctx, juan.ID, &ChangePasswordInput{OldPassword: testutil.UserPassword, NewPassword: "short"})
		s.ErrorIs(err, domain.ErrValidation)

		s.Require().NoError(s.users.ChangePassword(s.ctx, juan.ID, &ChangePasswordInput{
			OldPassword: testutil.UserPassword,
			NewPassword: "newsecret123",
		}))

		_, err = s.auth.Login(s.ctx, &LoginInput{Username: "juan", Password: "newsecret123"})
		s.NoError(err)
	})
}
