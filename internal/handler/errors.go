package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/photoverify_api/internal/utils"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{utils.ErrPhotoNotFound, http.StatusNotFound, "Photo not found"},
	{utils.ErrLocationNotFound, http.StatusNotFound, "Property location not found"},
	{utils.ErrObjectNotFound, http.StatusNotFound, "Photo file has not been uploaded"},
	{utils.ErrInvalidLoanID, http.StatusBadRequest, "Loan id must be 1-64 letters, digits, dashes or underscores"},
	{utils.ErrInvalidReviewer, http.StatusBadRequest, "Reviewer name is too long"},
	{utils.ErrInvalidFileKey, http.StatusBadRequest, "File key does not belong to this loan"},
	{utils.ErrInvalidReviewStatus, http.StatusBadRequest, "Review status must be manual_approved or manual_rejected"},
	{utils.ErrInvalidStatus, http.StatusBadRequest, "Unknown verification status"},
	{utils.ErrInvalidGeofenceRadius, http.StatusBadRequest, "Geofence radius must not be negative"},
	{utils.ErrObjectTooLarge, http.StatusRequestEntityTooLarge, "Photo file is too large"},
	{utils.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "Only image uploads are accepted"},
	{utils.ErrPhotoAlreadyReviewed, http.StatusConflict, "Photo already has a manual review decision"},
	{utils.ErrAddressNotGeocodable, http.StatusUnprocessableEntity, "Address could not be geocoded"},
	{utils.ErrGeocodingDisabled, http.StatusServiceUnavailable, "Geocoding is not configured"},
}

// respondError maps service errors onto the response envelope. Unknown errors become 500s.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			utils.Error(c, m.status, m.err.Error(), m.message)
			return
		}
	}

	log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.FullPath()).Msg("Request failed")
	_ = c.Error(err)
	utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
}

func respondBindError(c *gin.Context, err error) {
	utils.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
}
