package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
)

// PropertyLocationService resolves loan property locations.
type PropertyLocationService interface {
	GetPropertyLocation(ctx context.Context, loanID string) (*models.PropertyLocation, error)
	GetOrCreatePropertyLocation(ctx context.Context, loanID, address string, radius int) (*models.PropertyLocation, error)
	SetPropertyLocation(ctx context.Context, loanID, address string, radius int) (*models.PropertyLocation, error)
}

// PropertyLocationHandler handles property location endpoints.
type PropertyLocationHandler struct {
	svc PropertyLocationService
}

// NewPropertyLocationHandler creates a new PropertyLocationHandler.
func NewPropertyLocationHandler(svc PropertyLocationService) *PropertyLocationHandler {
	return &PropertyLocationHandler{svc: svc}
}

// Get handles GET /v1/loans/:loanId/property-location?address=<optional>
// With an address, a loan without a stored location is geocoded on first read.
func (h *PropertyLocationHandler) Get(c *gin.Context) {
	var (
		loc *models.PropertyLocation
		err error
	)
	if address := strings.TrimSpace(c.Query("address")); address != "" {
		loc, err = h.svc.GetOrCreatePropertyLocation(c.Request.Context(), c.Param("loanId"), address, 0)
	} else {
		loc, err = h.svc.GetPropertyLocation(c.Request.Context(), c.Param("loanId"))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if loc == nil {
		respondError(c, utils.ErrLocationNotFound)
		return
	}
	utils.Success(c, http.StatusOK, "Property location retrieved", loc)
}

// Put handles PUT /v1/loans/:loanId/property-location
func (h *PropertyLocationHandler) Put(c *gin.Context) {
	var req models.PropertyLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	loc, err := h.svc.SetPropertyLocation(c.Request.Context(), c.Param("loanId"), req.Address, req.GeofenceRadiusMeters)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Property location saved", loc)
}
