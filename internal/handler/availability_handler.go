package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aquaflow/swimschool-api/internal/conflict"
	"github.com/aquaflow/swimschool-api/internal/middleware"
	"github.com/aquaflow/swimschool-api/pkg/response"
)

type availabilityService interface {
	Report(ctx context.Context) (*conflict.AvailabilityReport, bool, error)
}

// AvailabilityHandler exposes the slot availability endpoints.
type AvailabilityHandler struct {
	availability availabilityService
}

// NewAvailabilityHandler constructs AvailabilityHandler.
func NewAvailabilityHandler(availability availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// Report godoc
// @Summary Slot availability for every course
// @Description Recomputes ownership, capacity and lesson locks from the
// @Description full enrollment history and reports per-course verdicts.
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Report(c *gin.Context) {
	report, cacheHit, err := h.availability.Report(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}
