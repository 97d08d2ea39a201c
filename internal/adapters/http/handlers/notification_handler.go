package handlers

import (
	"errors"

	"barangay-services/internal/core/domain"
	"barangay-services/internal/core/services"
	"barangay-services/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// NotificationHandler handles the notification feed and resident inbox
type NotificationHandler struct {
	notifService *services.NotificationService
	inboxService *services.InboxService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifService *services.NotificationService, inboxService *services.InboxService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
		inboxService: inboxService,
	}
}

// MarkByTypeRequest represents read-by-type request body
type MarkByTypeRequest struct {
	Type   string `json:"type"`
	Invert bool   `json:"invert"`
}

// List lists the user's notifications
// @Summary List notifications
// @Description List the current user's notifications newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread notifications"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	notifications, err := h.notifService.ListForUser(c.UserContext(), userID, c.QueryBool("unread", false))
	if err != nil {
		return response.InternalServerError(c, "Failed to list notifications")
	}

	return response.Success(c, "Notifications retrieved successfully", fiber.Map{
		"notifications": notifications,
	})
}

// UnreadCount counts unread notifications
// @Summary Unread notification count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	count, err := h.notifService.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to count notifications")
	}

	return response.Success(c, "Unread count retrieved successfully", fiber.Map{
		"count": count,
	})
}

// MarkRead marks one notification as read
// @Summary Mark notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notifService.MarkRead(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to update notification")
	}

	return response.Success(c, "Notification marked as read", nil)
}

// MarkAllRead marks every notification as read
// @Summary Mark all notifications as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	updated, err := h.notifService.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to update notifications")
	}

	return response.Success(c, "All notifications marked as read", fiber.Map{
		"updated": updated,
	})
}

// MarkReadByType marks notifications of one type as read
// @Summary Mark notifications of a type as read
// @Description With invert set, every notification except the given type is marked
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body MarkByTypeRequest true "Type filter"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /notifications/read-by-type [put]
func (h *NotificationHandler) MarkReadByType(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req MarkByTypeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	updated, err := h.notifService.MarkReadByType(c.UserContext(), userID, req.Type, req.Invert)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return validationFailed(c, err)
		}
		return response.InternalServerError(c, "Failed to update notifications")
	}

	return response.Success(c, "Notifications marked as read", fiber.Map{
		"updated": updated,
	})
}

// Delete removes one notification
// @Summary Delete notification
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid notification ID")
	}

	if err := h.notifService.Delete(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, services.ErrNotificationNotFound) {
			return response.NotFound(c, "Notification not found")
		}
		return response.InternalServerError(c, "Failed to delete notification")
	}

	return response.Success(c, "Notification deleted", nil)
}

// ClearAll removes every notification of the user
// @Summary Clear notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /notifications [delete]
func (h *NotificationHandler) ClearAll(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	deleted, err := h.notifService.ClearAll(c.UserContext(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to clear notifications")
	}

	return response.Success(c, "Notifications cleared", fiber.Map{
		"deleted": deleted,
	})
}

// ListInbox lists the resident inbox
// @Summary List inbox
// @Description Inbox messages joined with the current state of their certificate request
// @Tags Inbox
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /inbox [get]
func (h *NotificationHandler) ListInbox(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	messages, err := h.inboxService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list inbox")
	}

	return response.Success(c, "Inbox retrieved successfully", fiber.Map{
		"messages": messages,
	})
}

// MarkInboxRead marks an inbox message as read
// @Summary Mark inbox message as read
// @Tags Inbox
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inbox message ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /inbox/{id}/read [put]
func (h *NotificationHandler) MarkInboxRead(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid message ID")
	}

	if err := h.inboxService.MarkRead(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, services.ErrInboxMessageNotFound) {
			return response.NotFound(c, "Inbox message not found")
		}
		return response.InternalServerError(c, "Failed to update inbox message")
	}

	return response.Success(c, "Inbox message marked as read", nil)
}

// DeleteInbox removes an inbox message
// @Summary Delete inbox message
// @Tags Inbox
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inbox message ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /inbox/{id} [delete]
func (h *NotificationHandler) DeleteInbox(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid message ID")
	}

	if err := h.inboxService.Delete(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, services.ErrInboxMessageNotFound) {
			return response.NotFound(c, "Inbox message not found")
		}
		return response.InternalServerError(c, "Failed to delete inbox message")
	}

	return response.Success(c, "Inbox message deleted", nil)
}
