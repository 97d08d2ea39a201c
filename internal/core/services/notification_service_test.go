package services

import (
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/testutil"
)

func (s *ServiceSuite) TestNotificationFeed() {
	owner := testutil.CreateUser(s.T(), s.db, "lito", string(domain.RoleModerator), &s.region.Barangay.ID)
	other := testutil.CreateUser(s.T(), s.db, "nena", string(domain.RoleResident), &s.region.Barangay.ID)

	ref := uint(42)
	appended := make([]*models.Notification, 0, 3)
	for _, n := range []struct{ typ, msg string }{
		{domain.NotificationNewCertRequest, "New Barangay Clearance request from Juan"},
		{domain.NotificationNewCertRequest, "New Barangay Clearance request from Juan"},
		{domain.NotificationCertUpdate, "Your Indigency request has been approved"},
	} {
		got, err := s.notifs.Append(s.ctx, owner.ID, n.typ, n.msg, &ref)
		s.Require().NoError(err)
		appended = append(appended, got)
	}
	foreign, err := s.notifs.Append(s.ctx, other.ID, domain.NotificationCertUpdate, "Your Clearance request has been declined", nil)
	s.Require().NoError(err)

	s.Run("append validates input", func() {
		_, err := s.notifs.Append(s.ctx, owner.ID, " ", "message", nil)
		s.ErrorIs(err, domain.ErrValidation)

		_, err = s.notifs.Append(s.ctx, owner.ID, domain.NotificationCertUpdate, "", nil)
		s.ErrorIs(err, domain.ErrValidation)
	})

	s.Run("duplicates are kept and listed newest first", func() {
		list, err := s.notifs.ListForUser(s.ctx, owner.ID, false)
		s.Require().NoError(err)
		s.Require().Len(list, 3)
		s.Equal(appended[2].ID, list[0].ID)
		s.Equal(appended[0].ID, list[2].ID)

		count, err := s.notifs.UnreadCount(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.EqualValues(3, count)
	})

	s.Run("rows of other users are out of reach", func() {
		s.ErrorIs(s.notifs.MarkRead(s.ctx, owner.ID, foreign.ID), ErrNotificationNotFound)
		s.ErrorIs(s.notifs.Delete(s.ctx, owner.ID, foreign.ID), ErrNotificationNotFound)

		count, err := s.notifs.UnreadCount(s.ctx, other.ID)
		s.Require().NoError(err)
		s.EqualValues(1, count)
	})

	s.Run("mark read is idempotent", func() {
		s.Require().NoError(s.notifs.MarkRead(s.ctx, owner.ID, appended[0].ID))
		s.Require().NoError(s.notifs.MarkRead(s.ctx, owner.ID, appended[0].ID))

		unread, err := s.notifs.ListForUser(s.ctx, owner.ID, true)
		s.Require().NoError(err)
		s.Len(unread, 2)
	})

	s.Run("mark read by type with invert", func() {
		n, err := s.notifs.MarkReadByType(s.ctx, owner.ID, domain.NotificationNewCertRequest, true)
		s.Require().NoError(err)
		s.EqualValues(1, n)

		unread, err := s.notifs.ListForUser(s.ctx, owner.ID, true)
		s.Require().NoError(err)
		s.Require().Len(unread, 1)
		s.Equal(appended[1].ID, unread[0].ID)

		n, err = s.notifs.MarkReadByType(s.ctx, owner.ID, domain.NotificationNewCertRequest, false)
		s.Require().NoError(err)
		s.EqualValues(1, n)

		_, err = s.notifs.MarkReadByType(s.ctx, owner.ID, "", false)
		s.ErrorIs(err, domain.ErrValidation)
	})

	s.Run("mark all read leaves other users alone", func() {
		_, err := s.notifs.Append(s.ctx, owner.ID, domain.NotificationCertUpdate, "Your Residency request has been approved", nil)
		s.Require().NoError(err)

		n, err := s.notifs.MarkAllRead(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.EqualValues(1, n)

		count, err := s.notifs.UnreadCount(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.Zero(count)

		count, err = s.notifs.UnreadCount(s.ctx, other.ID)
		s.Require().NoError(err)
		s.EqualValues(1, count)
	})

	s.Run("delete and clear", func() {
		s.Require().NoError(s.notifs.Delete(s.ctx, owner.ID, appended[0].ID))
		s.ErrorIs(s.notifs.Delete(s.ctx, owner.ID, appended[0].ID), ErrNotificationNotFound)

		n, err := s.notifs.ClearAll(s.ctx, owner.ID)
		s.Require().NoError(err)
		s.EqualValues(3, n)

		list, err := s.notifs.ListForUser(s.ctx, owner.ID, false)
		s.Require().NoError(err)
		s.Empty(list)

		list, err = s.notifs.ListForUser(s.ctx, other.ID, false)
		s.Require().NoError(err)
		s.Len(list, 1)
	})
}

func (s *ServiceSuite) TestInbox() {
	resident := testutil.CreateUser(s.T(), s.db, "juan", string(domain.RoleResident), &s.region.Barangay.ID)
	neighbour := testutil.CreateUser(s.T(), s.db, "ana", string(domain.RoleResident), &s.region.Barangay.ID)

	req, err := s.certs.Submit(s.ctx, resident.ID, submitInput(), nil)
	s.Require().NoError(err)
	_, err = s.certs.UpdateStatus(s.ctx, req.ID, "Approved")
	s.Require().NoError(err)

	s.Require().NoError(s.inboxRepo.Create(s.ctx, &models.ResidentInbox{
		UserID: resident.ID,
		Type:   "announcement",
		Title:  "Hall closed on Friday",
	}))

	entries, err := s.inbox.ListForUser(s.ctx, resident.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	s.Run("entries without a request have empty details", func() {
		s.Equal("announcement", entries[0].Type)
		s.Nil(entries[0].CertificateRequestID)
		s.Nil(entries[0].CertificateType)
	})

	s.Run("approved entry carries live request details", func() {
		approved := entries[1]
		s.Require().NotNil(approved.CertificateType)
		s.Equal("Barangay Clearance", *approved.CertificateType)
		s.Require().NotNil(approved.BarangayName)
		s.Equal("Poblacion", *approved.BarangayName)
		s.False(approved.IsRead)
	})

	s.Run("mark read and delete are scoped to the owner", func() {
		id := entries[1].ID
		s.ErrorIs(s.inbox.MarkRead(s.ctx, neighbour.ID, id), ErrInboxMessageNotFound)
		s.ErrorIs(s.inbox.Delete(s.ctx, neighbour.ID, id), ErrInboxMessageNotFound)

		s.Require().NoError(s.inbox.MarkRead(s.ctx, resident.ID, id))
		after, err := s.inbox.ListForUser(s.ctx, resident.ID)
		s.Require().NoError(err)
		s.True(after[1].IsRead)

		s.Require().NoError(s.inbox.Delete(s.ctx, resident.ID, id))
		after, err = s.inbox.ListForUser(s.ctx, resident.ID)
		s.Require().NoError(err)
		s.Len(after, 1)
	})
}
