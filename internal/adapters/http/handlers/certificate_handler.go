package handlers

import (
	"errors"
	"fmt"
	"time"

	"barangay-services/internal/adapters/persistence/models"
	"barangay-services/internal/adapters/storage"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/core/services"
	"barangay-services/internal/pkg/pagination"
	"barangay-services/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// attachmentField is the multipart field carrying supporting documents
const attachmentField = "attachments"

// CertificateHandler handles certificate request endpoints
type CertificateHandler struct {
	certService *services.CertificateService
	storage     *storage.LocalStorage
	maxFiles    int
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certService *services.CertificateService, store *storage.LocalStorage, maxFiles int) *CertificateHandler {
	return &CertificateHandler{
		certService: certService,
		storage:     store,
		maxFiles:    maxFiles,
	}
}

// UpdateStatusRequest represents status update request body
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Submit creates a certificate request
// @Summary Submit certificate request
// @Description Submit a request with optional supporting documents (pdf, jpg, png). Moderators of the resident's barangay are notified.
// @Tags Certificates
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param certificate_type formData string true "Certificate type"
// @Param purpose formData string true "Purpose"
// @Param full_name formData string true "Full name"
// @Param birthdate formData string false "Birthdate (YYYY-MM-DD)"
// @Param age formData int false "Age"
// @Param civil_status formData string false "Civil status"
// @Param address formData string true "Address"
// @Param contact_number formData string false "Contact number"
// @Param attachments formData file false "Supporting documents"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /certificate_requests [post]
func (h *CertificateHandler) Submit(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.SubmitInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// Validate before touching storage
	if _, err := input.Validate(); err != nil {
		return validationFailed(c, err)
	}

	attachments, err := h.saveAttachments(c, userID)
	if err != nil {
		if errors.Is(err, storage.ErrFileTooLarge) || errors.Is(err, storage.ErrUnsupportedFileType) || errors.Is(err, domain.ErrValidation) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalServerError(c, "Failed to store attachments")
	}

	req, err := h.certService.Submit(c.UserContext(), userID, &input, attachments)
	if err != nil {
		h.discard(attachments)
		switch {
		case errors.Is(err, domain.ErrValidation):
			return validationFailed(c, err)
		case errors.Is(err, services.ErrNoBarangay):
			return response.BadRequest(c, "Your account is not assigned to a barangay")
		case errors.Is(err, services.ErrUserNotFound):
			return response.NotFound(c, "User not found")
		default:
			return response.InternalServerError(c, "Failed to submit certificate request")
		}
	}

	return response.Created(c, "Certificate request submitted successfully", fiber.Map{
		"certificate_request": req,
	})
}

// List lists all certificate requests
// @Summary List certificate requests
// @Description List all certificate requests newest first (Moderator/Admin)
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Pending, Approved or Declined"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /certificate_requests [get]
func (h *CertificateHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	requests, total, err := h.certService.List(c.UserContext(), c.Query("status"), params)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return validationFailed(c, err)
		}
		return response.InternalServerError(c, "Failed to list certificate requests")
	}

	return response.Success(c, "Certificate requests retrieved successfully", pagination.NewResponse(requests, params, total))
}

// ListMine lists the current resident's requests
// @Summary Get my certificate requests
// @Description Get the current user's certificate requests
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /certificate_requests/mine [get]
func (h *CertificateHandler) ListMine(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	requests, err := h.certService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list certificate requests")
	}

	return response.Success(c, "Certificate requests retrieved successfully", fiber.Map{
		"certificate_requests": requests,
	})
}

// ListForModerator lists requests from a moderator's barangay
// @Summary List requests for a moderator
// @Description List the requests of the moderator's barangay. Moderators may only query themselves.
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param userId path int true "Moderator user ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Pending, Approved or Declined"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /certificate_requests/moderator/{userId} [get]
func (h *CertificateHandler) ListForModerator(c *fiber.Ctx) error {
	moderatorID, ok := paramID(c, "userId")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	role, _ := c.Locals("role").(string)
	if userID, _ := currentUserID(c); role != string(domain.RoleAdmin) && userID != moderatorID {
		return response.Forbidden(c, "You can only view requests for your own barangay")
	}

	params := pagination.GetParams(c)
	requests, total, err := h.certService.ListForModerator(c.UserContext(), moderatorID, c.Query("status"), params)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to list certificate requests")
	}

	return response.Success(c, "Certificate requests retrieved successfully", pagination.NewResponse(requests, params, total))
}

// GetByID gets a certificate request
// @Summary Get certificate request by ID
// @Description Residents may only view their own requests; moderators those of their barangay
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Certificate request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /certificate_requests/{id} [get]
func (h *CertificateHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid certificate request ID")
	}

	req, err := h.certService.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrCertificateRequestNotFound) {
			return response.NotFound(c, "Certificate request not found")
		}
		return response.InternalServerError(c, "Failed to get certificate request")
	}

	if !canView(c, req) {
		return response.Forbidden(c, "You do not have access to this certificate request")
	}

	return response.Success(c, "Certificate request retrieved successfully", fiber.Map{
		"certificate_request": req,
	})
}

// UpdateStatus approves or declines a request
// @Summary Update certificate request status
// @Description Approve or decline a Pending request (Moderator/Admin). The requester is notified; approvals also reach the resident inbox.
// @Tags Certificates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Certificate request ID"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /certificate_requests/{id}/status [put]
func (h *CertificateHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid certificate request ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if done, err := h.authorizeDecision(c, id); done {
		return err
	}

	updated, err := h.certService.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			return validationFailed(c, err)
		case errors.Is(err, services.ErrCertificateRequestNotFound):
			return response.NotFound(c, "Certificate request not found")
		case errors.Is(err, services.ErrInvalidStatusTransition):
			return response.Conflict(c, "Certificate request has already been approved or declined")
		default:
			return response.InternalServerError(c, "Failed to update certificate request")
		}
	}

	return response.Success(c, fmt.Sprintf("Certificate request %s", updated.Status), fiber.Map{
		"certificate_request": updated,
	})
}

// Delete removes a certificate request
// @Summary Delete certificate request
// @Description Hard delete a request and its attachments (Moderator/Admin). No notification is sent.
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param id path int true "Certificate request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /certificate_requests/{id} [delete]
func (h *CertificateHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid certificate request ID")
	}

	if done, err := h.authorizeDecision(c, id); done {
		return err
	}

	if err := h.certService.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrCertificateRequestNotFound) {
			return response.NotFound(c, "Certificate request not found")
		}
		return response.InternalServerError(c, "Failed to delete certificate request")
	}

	return response.Success(c, "Certificate request deleted successfully", nil)
}

// saveAttachments stores every uploaded file, undoing partial work on failure
func (h *CertificateHandler) saveAttachments(c *fiber.Ctx, userID uint) ([]services.Attachment, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// JSON or urlencoded body without files
		return nil, nil
	}

	files := form.File[attachmentField]
	if h.maxFiles > 0 && len(files) > h.maxFiles {
		return nil, domain.Invalid(attachmentField, "At most %d attachments are allowed", h.maxFiles)
	}

	for _, fh := range files {
		if err := h.storage.Validate(fh); err != nil {
			return nil, err
		}
	}

	dir := fmt.Sprintf("certificates/%d/%s", userID, time.Now().UTC().Format("200601"))
	attachments := make([]services.Attachment, 0, len(files))
	for _, fh := range files {
		stored, err := h.storage.Save(dir, fh)
		if err != nil {
			h.discard(attachments)
			return nil, err
		}
		attachments = append(attachments, services.Attachment{Path: stored.Path, OriginalName: stored.OriginalName})
	}
	return attachments, nil
}

// discard removes files saved for a request that was not stored
func (h *CertificateHandler) discard(attachments []services.Attachment) {
	paths := make([]string, 0, len(attachments))
	for _, a := range attachments {
		paths = append(paths, a.Path)
	}
	h.storage.Remove(paths...)
}

// authorizeDecision loads request id and rejects moderators of other
// barangays. done is true when a response has already been written.
func (h *CertificateHandler) authorizeDecision(c *fiber.Ctx, id uint) (bool, error) {
	req, err := h.certService.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrCertificateRequestNotFound) {
			return true, response.NotFound(c, "Certificate request not found")
		}
		return true, response.InternalServerError(c, "Failed to get certificate request")
	}
	if !canView(c, req) {
		return true, response.Forbidden(c, "You can only manage certificate requests of your barangay")
	}
	return false, nil
}

// canView applies the per-role read rule for a single request
func canView(c *fiber.Ctx, req *models.CertificateRequest) bool {
	userID, _ := currentUserID(c)
	role, _ := c.Locals("role").(string)

	switch domain.Role(role) {
	case domain.RoleAdmin:
		return true
	case domain.RoleModerator:
		barangayID, _ := c.Locals("barangayID").(*uint)
		return barangayID != nil && req.BarangayID != nil && *barangayID == *req.BarangayID
	default:
		return req.UserID == userID
	}
}
