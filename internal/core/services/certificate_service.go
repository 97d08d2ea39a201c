package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"barangay-services/internal/adapters/events"
	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/metrics"
	"barangay-services/internal/pkg/pagination"

	"gorm.io/gorm"
)

// Certificate service errors
var (
	ErrCertificateRequestNotFound = errors.New("certificate request not found")
	ErrInvalidStatusTransition    = errors.New("certificate request has already been resolved")
	ErrNoBarangay                 = errors.New("account is not assigned to a barangay")
)

// birthdateLayout is the accepted birthdate format
const birthdateLayout = "2006-01-02"

// FileRemover deletes stored attachment files
type FileRemover interface {
	Remove(paths ...string)
}

// CertificateService runs the certificate request workflow:
// Pending -> Approved | Declined, both terminal.
type CertificateService struct {
	db         *gorm.DB
	certRepo   repositories.CertificateRepository
	userRepo   repositories.UserRepository
	regionRepo repositories.RegionRepository
	notifRepo  repositories.NotificationRepository
	inboxRepo  repositories.InboxRepository
	publisher  events.Publisher
	files      FileRemover
	metrics    *metrics.Metrics
	nowFn      func() time.Time
}

// NewCertificateService creates a new certificate service.
// publisher and files may be nil.
func NewCertificateService(
	db *gorm.DB,
	certRepo repositories.CertificateRepository,
	userRepo repositories.UserRepository,
	regionRepo repositories.RegionRepository,
	notifRepo repositories.NotificationRepository,
	inboxRepo repositories.InboxRepository,
	publisher events.Publisher,
	files FileRemover,
	m *metrics.Metrics,
) *CertificateService {
	return &CertificateService{
		db:         db,
		certRepo:   certRepo,
		userRepo:   userRepo,
		regionRepo: regionRepo,
		notifRepo:  notifRepo,
		inboxRepo:  inboxRepo,
		publisher:  publisher,
		files:      files,
		metrics:    m,
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInput represents a certificate request submission
type SubmitInput struct {
	CertificateType string `json:"certificate_type" form:"certificate_type"`
	Purpose         string `json:"purpose" form:"purpose"`
	FullName        string `json:"full_name" form:"full_name"`
	Birthdate       string `json:"birthdate" form:"birthdate"`
	Age             *int   `json:"age" form:"age"`
	CivilStatus     string `json:"civil_status" form:"civil_status"`
	Address         string `json:"address" form:"address"`
	ContactNumber   string `json:"contact_number" form:"contact_number"`
}

// Attachment is a stored supporting document
type Attachment struct {
	Path         string
	OriginalName string
}

// Validate trims and checks required fields, returning the parsed birthdate
func (in *SubmitInput) Validate() (*time.Time, error) {
	in.CertificateType = strings.TrimSpace(in.CertificateType)
	in.Purpose = strings.TrimSpace(in.Purpose)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Address = strings.TrimSpace(in.Address)
	in.CivilStatus = strings.TrimSpace(in.CivilStatus)
	in.ContactNumber = strings.TrimSpace(in.ContactNumber)

	switch {
	case in.CertificateType == "":
		return nil, domain.Invalid("certificate_type", "Certificate type is required")
	case in.Purpose == "":
		return nil, domain.Invalid("purpose", "Purpose is required")
	case in.FullName == "":
		return nil, domain.Invalid("full_name", "Full name is required")
	case in.Address == "":
		return nil, domain.Invalid("address", "Address is required")
	}

	if in.Age != nil && (*in.Age < 0 || *in.Age > 150) {
		return nil, domain.Invalid("age", "Age must be between 0 and 150")
	}

	if in.Birthdate == "" {
		return nil, nil
	}
	birthdate, err := time.Parse(birthdateLayout, strings.TrimSpace(in.Birthdate))
	if err != nil {
		return nil, domain.Invalid("birthdate", "Birthdate must be in YYYY-MM-DD format")
	}
	return &birthdate, nil
}

// Submit stores a new Pending request with its attachments and notifies every
// moderator of the requester's barangay. All writes share one transaction.
func (s *CertificateService) Submit(ctx context.Context, requesterID uint, input *SubmitInput, attachments []Attachment) (*models.CertificateRequest, error) {
	start := time.Now()

	birthdate, err := input.Validate()
	if err != nil {
		return nil, err
	}

	var req *models.CertificateRequest
	var moderatorCount int

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Resolve requester and region
		requester, err := s.userRepo.WithTx(tx).GetByIDWithRegion(ctx, requesterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if requester.BarangayID == nil || requester.Barangay == nil {
			return ErrNoBarangay
		}

		// 2. Persist request with region snapshot
		req = &models.CertificateRequest{
			UserID:          requester.ID,
			BarangayID:      requester.BarangayID,
			CertificateType: input.CertificateType,
			Purpose:         input.Purpose,
			FullName:        input.FullName,
			Birthdate:       birthdate,
			Age:             input.Age,
			CivilStatus:     input.CivilStatus,
			Address:         input.Address,
			ContactNumber:   input.ContactNumber,
			BarangayName:    requester.Barangay.Name,
			Status:          string(domain.CertificatePending),
		}
		if requester.Barangay.Municipality != nil {
			req.MunicipalityName = requester.Barangay.Municipality.Name
		}

		certRepo := s.certRepo.WithTx(tx)
		if err := certRepo.Create(ctx, req); err != nil {
			return err
		}

		// 3. Attachment references
		rows := make([]models.CertificateAttachment, 0, len(attachments))
		for _, a := range attachments {
			rows = append(rows, models.CertificateAttachment{
				CertificateRequestID: req.ID,
				FilePath:             a.Path,
				OriginalName:         a.OriginalName,
			})
		}
		if err := certRepo.CreateAttachments(ctx, rows); err != nil {
			return err
		}
		req.Attachments = rows

		// 4. Moderator fan-out
		moderatorIDs, err := s.regionRepo.WithTx(tx).ListModeratorIDs(ctx, *requester.BarangayID)
		if err != nil {
			return err
		}

		message := fmt.Sprintf("New %s request from %s", req.CertificateType, req.FullName)
		notifications := make([]*models.Notification, 0, len(moderatorIDs))
		for _, modID := range moderatorIDs {
			notifications = append(notifications, &models.Notification{
				UserID:      modID,
				Type:        domain.NotificationNewCertRequest,
				Message:     message,
				ReferenceID: &req.ID,
			})
		}
		moderatorCount = len(notifications)

		return s.notifRepo.WithTx(tx).CreateBatch(ctx, notifications)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CertificatesSubmitted.Inc()
		s.metrics.IncNotifications(domain.NotificationNewCertRequest, moderatorCount)
		s.metrics.ObserveSubmit(start)
	}

	s.publish(events.QueueCertificateSubmitted, events.CertificateSubmitted{
		RequestID:       req.ID,
		UserID:          req.UserID,
		BarangayID:      req.BarangayID,
		CertificateType: req.CertificateType,
		ModeratorCount:  moderatorCount,
		SubmittedAt:     s.nowFn(),
	})

	log.Printf("✅ Certificate request #%d submitted by user %d (%d moderator(s) notified)", req.ID, requesterID, moderatorCount)
	return req, nil
}

// ParseDecision validates a requested status change target
func ParseDecision(status string) (domain.CertificateStatus, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "approved":
		return domain.CertificateApproved, nil
	case "declined":
		return domain.CertificateDeclined, nil
	}
	return "", domain.Invalid("status", "Status must be Approved or Declined")
}

// UpdateStatus approves or declines a Pending request. Approval also creates
// an inbox message; both outcomes notify the requester.
func (s *CertificateService) UpdateStatus(ctx context.Context, id uint, status string) (*models.CertificateRequest, error) {
	next, err := ParseDecision(status)
	if err != nil {
		return nil, err
	}

	var requesterID uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the row
		certRepo := s.certRepo.WithTx(tx)
		req, err := certRepo.GetForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCertificateRequestNotFound
			}
			return err
		}
		if !domain.CertificateStatus(req.Status).CanTransitionTo(next) {
			return ErrInvalidStatusTransition
		}
		requesterID = req.UserID

		// 2. Durable inbox record on approval only
		if next == domain.CertificateApproved {
			if err := s.inboxRepo.WithTx(tx).Create(ctx, &models.ResidentInbox{
				UserID:               req.UserID,
				Type:                 domain.InboxApprovedCertificate,
				Title:                fmt.Sprintf("%s approved", req.CertificateType),
				Body:                 fmt.Sprintf("Your request for a %s has been approved. You may claim it at the barangay hall.", req.CertificateType),
				CertificateRequestID: &req.ID,
			}); err != nil {
				return err
			}
		}

		// 3. Status
		if err := certRepo.UpdateStatus(ctx, req.ID, next); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return ErrInvalidStatusTransition
			}
			return err
		}

		// 4. Requester notification
		return s.notifRepo.WithTx(tx).Create(ctx, &models.Notification{
			UserID:      req.UserID,
			Type:        domain.NotificationCertUpdate,
			Message:     fmt.Sprintf("Your %s request has been %s", req.CertificateType, strings.ToLower(string(next))),
			ReferenceID: &req.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CertificateDecisions.WithLabelValues(string(next)).Inc()
		s.metrics.IncNotifications(domain.NotificationCertUpdate, 1)
	}

	s.publish(events.QueueCertificateStatusChanged, events.CertificateStatusChanged{
		RequestID: id,
		UserID:    requesterID,
		Status:    string(next),
		ChangedAt: s.nowFn(),
	})

	log.Printf("✅ Certificate request #%d %s", id, strings.ToLower(string(next)))
	return s.GetByID(ctx, id)
}

// Delete hard deletes a request and its attachments. No notification is sent.
func (s *CertificateService) Delete(ctx context.Context, id uint) error {
	req, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCertificateRequestNotFound
		}
		return err
	}

	affected, err := s.certRepo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCertificateRequestNotFound
	}

	if s.files != nil && len(req.Attachments) > 0 {
		paths := make([]string, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			paths = append(paths, a.FilePath)
		}
		s.files.Remove(paths...)
	}

	log.Printf("🗑️ Certificate request #%d deleted", id)
	return nil
}

// GetByID gets a certificate request
func (s *CertificateService) GetByID(ctx context.Context, id uint) (*models.CertificateRequest, error) {
	req, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCertificateRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// List lists all requests, optionally filtered by status
func (s *CertificateService) List(ctx context.Context, status string, params *pagination.Params) ([]*models.CertificateRequest, int64, error) {
	filter := repositories.CertificateFilter{}
	if status != "" {
		st := domain.CertificateStatus(status)
		if st != domain.CertificatePending && !st.IsTerminal() {
			return nil, 0, domain.Invalid("status", "Status must be Pending, Approved or Declined")
		}
		filter.Status = status
	}
	return s.certRepo.List(ctx, filter, params.Offset, params.Limit)
}

// ListForModerator lists the requests of the moderator's barangay
func (s *CertificateService) ListForModerator(ctx context.Context, moderatorID uint, status string, params *pagination.Params) ([]*models.CertificateRequest, int64, error) {
	moderator, err := s.userRepo.GetByID(ctx, moderatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, err
	}
	if moderator.BarangayID == nil {
		return []*models.CertificateRequest{}, 0, nil
	}

	filter := repositories.CertificateFilter{BarangayID: moderator.BarangayID}
	if status != "" {
		filter.Status = status
	}
	return s.certRepo.List(ctx, filter, params.Offset, params.Limit)
}

// ListForUser lists a resident's own requests
func (s *CertificateService) ListForUser(ctx context.Context, userID uint) ([]*models.CertificateRequest, error) {
	return s.certRepo.ListByUser(ctx, userID)
}

// publish sends an event in the background when a publisher is configured
func (s *CertificateService) publish(queue string, event interface{}) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.publisher.Publish(ctx, queue, event)
	}()
}
