package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 3, TotalPages(41, 20))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestNowISO_UTC(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, NowISO())
	require.NoError(t, err)
	_, offset := ts.Zone()
	assert.Equal(t, 0, offset)
}

func TestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("error", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Set("request_id", "req-1")
		Error(c, http.StatusNotFound, ErrPhotoNotFound.Error(), "Photo not found")

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, "PHOTO_NOT_FOUND", resp.Error.Code)
		assert.Equal(t, "req-1", resp.Meta.RequestID)
	})

	t.Run("pagination defaults", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		SuccessWithPagination(c, http.StatusOK, "ok", []string{}, 0, 0, 45)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta.Pagination)
		assert.Equal(t, Pagination{Page: 1, Limit: 20, TotalItems: 45, TotalPages: 3}, *resp.Meta.Pagination)
		assert.Len(t, resp.Meta.RequestID, 8)
	})
}

func TestErrorCodesAreDistinct(t *testing.T) {
	errs := []error{
		ErrPhotoNotFound, ErrLocationNotFound, ErrInvalidReviewStatus, ErrInvalidFileKey,
		ErrObjectNotFound, ErrObjectTooLarge, ErrGeocodingDisabled, ErrAddressNotGeocodable,
		ErrUnsupportedMediaType, ErrInvalidGeofenceRadius, ErrInvalidStatus,
		ErrPhotoAlreadyReviewed, ErrInvalidLoanID,
	}
	seen := map[string]bool{}
	for _, err := range errs {
		assert.False(t, seen[err.Error()], err.Error())
		seen[err.Error()] = true
		assert.True(t, errors.Is(err, err))
	}
}
