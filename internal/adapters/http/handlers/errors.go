package handlers

import (
	"errors"
	"strconv"

	"barangay-services/internal/adapters/mail"
	"barangay-services/internal/core/domain"
	"barangay-services/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// validationFailed writes a 400 naming the rejected field
func validationFailed(c *fiber.Ctx, err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return response.ValidationFailed(c, ve.Field, ve.Message)
	}
	return response.BadRequest(c, err.Error())
}

// mailFailed writes 500 for SMTP credential problems and 502 otherwise
func mailFailed(c *fiber.Ctx, err error) (bool, error) {
	var de *mail.DeliveryError
	if !errors.As(err, &de) {
		return false, nil
	}
	if de.AuthFailure {
		return true, response.InternalServerError(c, "Email could not be sent due to a mail configuration issue")
	}
	return true, response.BadGateway(c, "Email could not be sent, please try again later")
}

// paramID parses a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// currentUserID reads the user ID set by the auth middleware
func currentUserID(c *fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("userID").(uint)
	return userID, ok
}
