package handlers

import (
	"strconv"

	"barangay-services/internal/adapters/persistence/repositories"
	"barangay-services/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RegionHandler serves the municipality and barangay directory used by the
// registration form
type RegionHandler struct {
	regionRepo repositories.RegionRepository
}

// NewRegionHandler creates a new region handler
func NewRegionHandler(regionRepo repositories.RegionRepository) *RegionHandler {
	return &RegionHandler{regionRepo: regionRepo}
}

// ListMunicipalities lists all municipalities
// @Summary List municipalities
// @Tags Regions
// @Produce json
// @Success 200 {object} response.Response
// @Router /regions/municipalities [get]
func (h *RegionHandler) ListMunicipalities(c *fiber.Ctx) error {
	municipalities, err := h.regionRepo.ListMunicipalities(c.UserContext())
	if err != nil {
		return response.InternalServerError(c, "Failed to list municipalities")
	}

	return response.Success(c, "Municipalities retrieved successfully", fiber.Map{
		"municipalities": municipalities,
	})
}

// ListBarangays lists barangays
// @Summary List barangays
// @Tags Regions
// @Produce json
// @Param municipality_id query int false "Filter by municipality"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /regions/barangays [get]
func (h *RegionHandler) ListBarangays(c *fiber.Ctx) error {
	var municipalityID *uint
	if raw := c.Query("municipality_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid municipality ID")
		}
		uid := uint(id)
		municipalityID = &uid
	}

	barangays, err := h.regionRepo.ListBarangays(c.UserContext(), municipalityID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list barangays")
	}

	return response.Success(c, "Barangays retrieved successfully", fiber.Map{
		"barangays": barangays,
	})
}
