package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// VerificationHandler exposes the verification vocabulary.
type VerificationHandler struct {
	thresholds verification.Thresholds
}

// NewVerificationHandler creates a new VerificationHandler.
func NewVerificationHandler(thresholds verification.Thresholds) *VerificationHandler {
	return &VerificationHandler{thresholds: thresholds}
}

// Statuses handles GET /v1/verification/statuses
func (h *VerificationHandler) Statuses(c *gin.Context) {
	statuses := verification.AllStatuses()
	out := make([]models.StatusInfo, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, models.StatusInfo{
			Status: s,
			Label:  verification.StatusLabel(s),
			Color:  verification.StatusColor(s),
		})
	}

	utils.Success(c, http.StatusOK, "Verification statuses", gin.H{
		"statuses": out,
		"thresholds": gin.H{
			"gpsMatchMeters":         h.thresholds.GPSMatchMeters,
			"propertyGeofenceMeters": h.thresholds.PropertyGeofenceMeters,
			"maxPhotoAgeHours":       h.thresholds.MaxPhotoAge.Hours(),
		},
	})
}
