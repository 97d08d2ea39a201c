package services

import (
	"time"

	"barangay-services/internal/adapters/events"
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/pagination"
	"barangay-services/internal/testutil"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func submitInput() *SubmitInput {
	age := 34
	return &SubmitInput{
		CertificateType: "Barangay Clearance",
		Purpose:         " Employment ",
		FullName:        "Juan Dela Cruz",
		Birthdate:       "1991-02-14",
		Age:             &age,
		CivilStatus:     "Single",
		Address:         "Purok 3",
		ContactNumber:   "09171234567",
	}
}

type fileRecorder struct {
	removed []string
}

func (f *fileRecorder) Remove(paths ...string) {
	f.removed = append(f.removed, paths...)
}

func (s *ServiceSuite) notificationsOf(userID uint) []*models.Notification {
	list, err := s.notifRepo.ListByUser(s.ctx, userID, false)
	s.Require().NoError(err)
	return list
}

func (s *ServiceSuite) TestSubmitValidation() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)

	cases := []struct {
		name  string
		edit  func(*SubmitInput)
		field string
	}{
		{"missing type", func(in *SubmitInput) { in.CertificateType = "  " }, "certificate_type"},
		{"missing purpose", func(in *SubmitInput) { in.Purpose = "" }, "purpose"},
		{"missing name", func(in *SubmitInput) { in.FullName = "" }, "full_name"},
		{"missing address", func(in *SubmitInput) { in.Address = "" }, "address"},
		{"negative age", func(in *SubmitInput) { n := -1; in.Age = &n }, "age"},
		{"bad birthdate", func(in *SubmitInput) { in.Birthdate = "14/02/1991" }, "birthdate"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			in := submitInput()
			tc.edit(in)

			_, err := s.certs.Submit(s.ctx, resident.ID, in, nil)
			s.Require().ErrorIs(err, domain.ErrValidation)
		})
	}

	s.Run("requester without barangay", func() {
		drifter := testutil.CreateUser(s.T(), s.db, "drifter", string(domain.RoleResident), nil)
		_, err := s.certs.Submit(s.ctx, drifter.ID, submitInput(), nil)
		s.ErrorIs(err, ErrNoBarangay)
	})

	s.Run("unknown requester", func() {
		_, err := s.certs.Submit(s.ctx, 9999, submitInput(), nil)
		s.ErrorIs(err, ErrUserNotFound)
	})
}

func (s *ServiceSuite) TestSubmitFansOutToBarangayModerators() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	mod1 := testutil.CreateUser(s.T(), s.db, "mod1", string(domain.RoleModerator), &s.region.Barangay.ID)
	mod2 := testutil.CreateUser(s.T(), s.db, "mod2", string(domain.RoleModerator), &s.region.Barangay.ID)
	elsewhere := testutil.CreateUser(s.T(), s.db, "mod3", string(domain.RoleModerator), &s.region.Other.ID)
	admin := testutil.CreateUser(s.T(), s.db, "boss", string(domain.RoleAdmin), &s.region.Barangay.ID)

	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), []Attachment{
		{Path: "certificates/a.pdf", OriginalName: "id.pdf"},
		{Path: "certificates/b.jpg", OriginalName: "photo.jpg"},
	})
	s.Require().NoError(err)

	s.Equal(string(domain.CertificatePending), req.Status)
	s.Equal("Employment", req.Purpose)
	s.Equal("Poblacion", req.BarangayName)
	s.Equal("Santa Maria", req.MunicipalityName)
	s.Require().NotNil(req.Birthdate)
	s.Equal(time.Date(1991, 2, 14, 0, 0, 0, 0, time.UTC), req.Birthdate.UTC())
	s.Len(req.Attachments, 2)

	for _, mod := range []*models.User{mod1, mod2} {
		list := s.notificationsOf(mod.ID)
		s.Require().Len(list, 1)
		s.Equal(domain.NotificationNewCertRequest, list[0].Type)
		s.Equal("New Barangay Clearance request from Juan Dela Cruz", list[0].Message)
		s.Require().NotNil(list[0].ReferenceID)
		s.Equal(req.ID, *list[0].ReferenceID)
		s.False(list[0].IsRead)
	}
	s.Empty(s.notificationsOf(elsewhere.ID))
	s.Empty(s.notificationsOf(admin.ID))
	s.Empty(s.notificationsOf(resident.ID))

	s.Equal(2.0, promtest.ToFloat64(s.metrics.NotificationsCreated.WithLabelValues(domain.NotificationNewCertRequest)))
	s.Eventually(func() bool {
		return len(s.publisher.published()) == 1
	}, time.Second, 10*time.Millisecond)
	s.Equal(events.QueueCertificateSubmitted, s.publisher.published()[0])

	stored, err := s.certs.GetByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Len(stored.Attachments, 2)
}

func (s *ServiceSuite) TestSubmitWithoutModerators() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Other.ID)

	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
	s.Require().NoError(err)
	s.Equal("San Jose", req.BarangayName)

	var count int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Count(&count).Error)
	s.Zero(count)
}

func (s *ServiceSuite) TestUpdateStatus() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)

	s.Run("approval creates an inbox message and a notification", func() {
		req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
		s.Require().NoError(err)

		updated, err := s.certs.UpdateStatus(s.ctx, req.ID, "approved")
		s.Require().NoError(err)
		s.Equal(string(domain.CertificateApproved), updated.Status)

		inbox, err := s.inbox.ListForUser(s.ctx, resident.ID)
		s.Require().NoError(err)
		s.Require().Len(inbox, 1)
		s.Equal(domain.InboxApprovedCertificate, inbox[0].Type)
		s.Equal("Barangay Clearance approved", inbox[0].Title)
		s.Require().NotNil(inbox[0].CertificateStatus)
		s.Equal("Approved", *inbox[0].CertificateStatus)
		s.Require().NotNil(inbox[0].FullName)
		s.Equal("Juan Dela Cruz", *inbox[0].FullName)

		list := s.notificationsOf(resident.ID)
		s.Require().Len(list, 1)
		s.Equal(domain.NotificationCertUpdate, list[0].Type)
		s.Equal("Your Barangay Clearance request has been approved", list[0].Message)
	})

	s.Run("terminal states reject further decisions", func() {
		req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
		s.Require().NoError(err)

		_, err = s.certs.UpdateStatus(s.ctx, req.ID, "Declined")
		s.Require().NoError(err)

		for _, status := range []string{"Approved", "Declined"} {
			_, err = s.certs.UpdateStatus(s.ctx, req.ID, status)
			s.ErrorIs(err, ErrInvalidStatusTransition)
		}
	})

	s.Run("decline notifies without an inbox message", func() {
		inbox, err := s.inbox.ListForUser(s.ctx, resident.ID)
		s.Require().NoError(err)
		s.Len(inbox, 1)

		list := s.notificationsOf(resident.ID)
		s.Require().Len(list, 2)
		s.Equal("Your Barangay Clearance request has been declined", list[0].Message)
	})

	s.Run("unknown target status", func() {
		req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
		s.Require().NoError(err)

		_, err = s.certs.UpdateStatus(s.ctx, req.ID, "Pending")
		s.ErrorIs(err, domain.ErrValidation)
	})

	s.Run("unknown request", func() {
		_, err := s.certs.UpdateStatus(s.ctx, 9999, "Approved")
		s.ErrorIs(err, ErrCertificateRequestNotFound)
	})
}

func (s *ServiceSuite) countRows(model interface{}) int64 {
	var n int64
	s.Require().NoError(s.db.Model(model).Count(&n).Error)
	return n
}

func (s *ServiceSuite) TestSubmitRollsBackWhenFanOutFails() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	testutil.CreateUser(s.T(), s.db, "kap", string(domain.RoleModerator), &s.region.Barangay.ID)

	s.Require().NoError(s.db.Migrator().DropTable(&models.Notification{}))

	_, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), []Attachment{{Path: "certificates/a.pdf", OriginalName: "id.pdf"}})
	s.Require().Error(err)

	s.Zero(s.countRows(&models.CertificateRequest{}))
	s.Zero(s.countRows(&models.CertificateAttachment{}))
	s.Zero(promtest.ToFloat64(s.metrics.CertificatesSubmitted))
}

func (s *ServiceSuite) TestUpdateStatusRollsBackWhenNotificationFails() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
	s.Require().NoError(err)

	s.Require().NoError(s.db.Migrator().DropTable(&models.Notification{}))

	_, err = s.certs.UpdateStatus(s.ctx, req.ID, "Approved")
	s.Require().Error(err)
	s.NotErrorIs(err, ErrInvalidStatusTransition)

	stored, err := s.certs.GetByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(string(domain.CertificatePending), stored.Status)
	s.Zero(s.countRows(&models.ResidentInbox{}))
	s.NotContains(s.publisher.published(), events.QueueCertificateStatusChanged)
}

func (s *ServiceSuite) TestStatusUpdateOnlyLeavesPending() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
	s.Require().NoError(err)

	certRepo := repositories.NewCertificateRepository(s.db)
	s.Require().NoError(certRepo.UpdateStatus(s.ctx, req.ID, domain.CertificateDeclined))
	s.ErrorIs(certRepo.UpdateStatus(s.ctx, req.ID, domain.CertificateApproved), domain.ErrConflict)

	stored, err := s.certs.GetByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(string(domain.CertificateDeclined), stored.Status)
}

func (s *ServiceSuite) TestDeleteKeepsInboxHistory() {
	files := &fileRecorder{}
	s.certs.files = files

	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), []Attachment{{Path: "certificates/a.pdf", OriginalName: "id.pdf"}})
	s.Require().NoError(err)
	_, err = s.certs.UpdateStatus(s.ctx, req.ID, "Approved")
	s.Require().NoError(err)

	s.Require().NoError(s.certs.Delete(s.ctx, req.ID))
	s.Equal([]string{"certificates/a.pdf"}, files.removed)

	_, err = s.certs.GetByID(s.ctx, req.ID)
	s.ErrorIs(err, ErrCertificateRequestNotFound)
	s.ErrorIs(s.certs.Delete(s.ctx, req.ID), ErrCertificateRequestNotFound)

	inbox, err := s.inbox.ListForUser(s.ctx, resident.ID)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Nil(inbox[0].CertificateStatus)
	s.Nil(inbox[0].CertificateType)
	s.Equal("Barangay Clearance approved", inbox[0].Title)
}

func (s *ServiceSuite) TestListings() {
	juan := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	ana := testutil.CreateUser(s.T(), s.db, "ana", string(domain.RoleResident), &s.region.Other.ID)
	mod := testutil.CreateUser(s.T(), s.db, "mod", string(domain.RoleModerator), &s.region.Barangay.ID)
	unassigned := testutil.CreateUser(s.T(), s.db, "floater", string(domain.RoleModerator), nil)

	first, err := s.certs.Submit(s.ctx, juan.ID, submitInput(), nil)
	s.Require().NoError(err)
	_, err = s.certs.Submit(s.ctx, juan.ID, submitInput(), nil)
	s.Require().NoError(err)
	_, err = s.certs.Submit(s.ctx, ana.ID, submitInput(), nil)
	s.Require().NoError(err)
	_, err = s.certs.UpdateStatus(s.ctx, first.ID, "Approved")
	s.Require().NoError(err)

	params := pagination.NewParams(1, 10)

	s.Run("all requests", func() {
		list, total, err := s.certs.List(s.ctx, "", params)
		s.Require().NoError(err)
		s.EqualValues(3, total)
		s.Len(list, 3)
	})

	s.Run("by status", func() {
		list, total, err := s.certs.List(s.ctx, "Pending", params)
		s.Require().NoError(err)
		s.EqualValues(2, total)
		for _, r := range list {
			s.Equal("Pending", r.Status)
		}

		_, _, err = s.certs.List(s.ctx, "Archived", params)
		s.ErrorIs(err, domain.ErrValidation)
	})

	s.Run("paged", func() {
		list, total, err := s.certs.List(s.ctx, "", pagination.NewParams(2, 2))
		s.Require().NoError(err)
		s.EqualValues(3, total)
		s.Len(list, 1)
	})

	s.Run("moderator sees own barangay", func() {
		list, total, err := s.certs.ListForModerator(s.ctx, mod.ID, "", params)
		s.Require().NoError(err)
		s.EqualValues(2, total)
		for _, r := range list {
			s.Equal(juan.ID, r.UserID)
		}

		list, _, err = s.certs.ListForModerator(s.ctx, unassigned.ID, "", params)
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("resident sees own requests", func() {
		list, err := s.certs.ListForUser(s.ctx, ana.ID)
		s.Require().NoError(err)
		s.Len(list, 1)
	})
}
