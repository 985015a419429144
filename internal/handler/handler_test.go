package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta struct {
		Pagination *utils.Pagination `json:"pagination"`
	} `json:"meta"`
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

type fakePhotoService struct {
	photo      *models.VerificationPhoto
	err        error
	lastLoan   string
	lastFilter models.PhotoFilter
	lastReview struct {
		id       string
		status   verification.Status
		reviewer string
	}
}

func (f *fakePhotoService) CreateUploadURL(_ context.Context, loanID string, req *models.UploadURLRequest) (*models.UploadURLResponse, error) {
	f.lastLoan = loanID
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadURLResponse{UploadURL: "https://s3.test/put", FileKey: "verification-photos/" + loanID + "/k-" + req.FileName}, nil
}

func (f *fakePhotoService) RegisterPhoto(_ context.Context, loanID string, req *models.RegisterPhotoRequest) (*models.VerificationPhoto, error) {
	f.lastLoan = loanID
	return f.photo, f.err
}

func (f *fakePhotoService) Reverify(context.Context, string) (*models.VerificationPhoto, error) {
	return f.photo, f.err
}

func (f *fakePhotoService) Review(_ context.Context, id string, status verification.Status, _ *string, reviewer string) (*models.VerificationPhoto, error) {
	f.lastReview.id, f.lastReview.status, f.lastReview.reviewer = id, status, reviewer
	if f.err != nil {
		return nil, f.err
	}
	p := *f.photo
	p.VerificationStatus = status
	return &p, nil
}

func (f *fakePhotoService) Get(context.Context, string) (*models.VerificationPhoto, error) {
	return f.photo, f.err
}

func (f *fakePhotoService) ListByLoan(_ context.Context, loanID string) ([]models.VerificationPhoto, error) {
	f.lastLoan = loanID
	if f.err != nil {
		return nil, f.err
	}
	return []models.VerificationPhoto{*f.photo}, nil
}

func (f *fakePhotoService) ListForReview(_ context.Context, filter *models.PhotoFilter) ([]models.VerificationPhoto, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	f.lastFilter = *filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.VerificationPhoto{*f.photo}, 41, nil
}

func (f *fakePhotoService) Delete(context.Context, string) error {
	return f.err
}

func samplePhoto() *models.VerificationPhoto {
	details := `{"message":"Photo location verified successfully","confidence":"high"}`
	return &models.VerificationPhoto{
		ID:                  "photo-1",
		LoanID:              "loan-1",
		FileKey:             "verification-photos/loan-1/a.jpg",
		VerificationStatus:  verification.StatusVerified,
		VerificationDetails: &details,
		GPSMatchConfidence:  verification.ConfidenceHigh,
	}
}

func newPhotoRouter(svc PhotoService) *gin.Engine {
	r := gin.New()
	photos := NewPhotoHandler(svc)
	admin := NewAdminPhotoHandler(svc)
	r.POST("/v1/loans/:loanId/photos/upload-url", photos.CreateUploadURL)
	r.POST("/v1/loans/:loanId/photos", photos.Register)
	r.GET("/v1/loans/:loanId/photos", photos.ListByLoan)
	r.GET("/v1/photos/:id", photos.Get)
	r.DELETE("/v1/photos/:id", photos.Delete)
	r.POST("/v1/photos/:id/reverify", photos.Reverify)
	r.GET("/v1/admin/photos", admin.List)
	r.PATCH("/v1/admin/photos/:id", admin.Review)
	return r
}

func TestPhotoHandler_Register(t *testing.T) {
	svc := &fakePhotoService{photo: samplePhoto()}
	r := newPhotoRouter(svc)

	w, env := doRequest(t, r, http.MethodPost, "/v1/loans/loan-1/photos", gin.H{
		"fileKey":          "verification-photos/loan-1/a.jpg",
		"fileName":         "a.jpg",
		"browserLatitude":  "33.749",
		"browserLongitude": "-84.388",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "loan-1", svc.lastLoan)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "verified", data["verificationStatus"])
	assert.Equal(t, "Verified", data["statusLabel"])
	assert.Equal(t, "green", data["statusColor"])
	details, ok := data["verificationDetails"].(map[string]any)
	require.True(t, ok, "details should be an object")
	assert.Equal(t, "high", details["confidence"])
}

func TestPhotoHandler_RegisterValidation(t *testing.T) {
	r := newPhotoRouter(&fakePhotoService{photo: samplePhoto()})

	w, env := doRequest(t, r, http.MethodPost, "/v1/loans/loan-1/photos", gin.H{"fileName": "a.jpg"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	oversized := []gin.H{
		{"drawId": strings.Repeat("d", 65)},
		{"uploadedBy": strings.Repeat("u", 129)},
		{"mimeType": "image/" + strings.Repeat("j", 123)},
		{"photoType": strings.Repeat("p", 65)},
	}
	for _, extra := range oversized {
		body := gin.H{"fileKey": "verification-photos/loan-1/a.jpg", "fileName": "a.jpg"}
		for k, v := range extra {
			body[k] = v
		}
		w, env = doRequest(t, r, http.MethodPost, "/v1/loans/loan-1/photos", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, extra)
		assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	}
}

func TestPhotoHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
		name string
	}{
		{utils.ErrPhotoNotFound, http.StatusNotFound, "PHOTO_NOT_FOUND"},
		{utils.ErrPhotoAlreadyReviewed, http.StatusConflict, "PHOTO_ALREADY_REVIEWED"},
		{utils.ErrObjectNotFound, http.StatusNotFound, "OBJECT_NOT_FOUND"},
		{utils.ErrInvalidLoanID, http.StatusBadRequest, "INVALID_LOAN_ID"},
		{utils.ErrInvalidReviewer, http.StatusBadRequest, "INVALID_REVIEWER"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newPhotoRouter(&fakePhotoService{err: tt.err})
			w, env := doRequest(t, r, http.MethodPost, "/v1/photos/p1/reverify", nil)
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.name, env.Error.Code)
		})
	}
}

func TestPhotoHandler_UploadURLAndDelete(t *testing.T) {
	r := newPhotoRouter(&fakePhotoService{photo: samplePhoto()})

	w, env := doRequest(t, r, http.MethodPost, "/v1/loans/loan-9/photos/upload-url", gin.H{"fileName": "x.jpg", "contentType": "image/jpeg"})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.UploadURLResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "verification-photos/loan-9/k-x.jpg", res.FileKey)

	w, _ = doRequest(t, r, http.MethodDelete, "/v1/photos/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/v1/loans/loan-9/photos", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminPhotoHandler_List(t *testing.T) {
	svc := &fakePhotoService{photo: samplePhoto()}
	r := newPhotoRouter(svc)

	w, env := doRequest(t, r, http.MethodGet, "/v1/admin/photos?status=gps_mismatch&page=3&limit=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, verification.StatusGPSMismatch, svc.lastFilter.Status)
	require.NotNil(t, env.Meta.Pagination)
	assert.Equal(t, 3, env.Meta.Pagination.Page)
	assert.Equal(t, 41, env.Meta.Pagination.TotalItems)
	assert.Equal(t, 3, env.Meta.Pagination.TotalPages)

	_, _ = doRequest(t, r, http.MethodGet, "/v1/admin/photos?page=abc", nil)
	assert.Equal(t, 1, svc.lastFilter.Page)
}

func TestAdminPhotoHandler_Review(t *testing.T) {
	svc := &fakePhotoService{photo: samplePhoto()}
	r := newPhotoRouter(svc)

	w, env := doRequest(t, r, http.MethodPatch, "/v1/admin/photos/photo-1",
		gin.H{"verificationStatus": "manual_rejected", "verificationNotes": "wrong house"},
		ReviewerHeader, "ops@lender.test")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "photo-1", svc.lastReview.id)
	assert.Equal(t, verification.StatusManualRejected, svc.lastReview.status)
	assert.Equal(t, "ops@lender.test", svc.lastReview.reviewer)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "Rejected", data["statusLabel"])

	svc.err = utils.ErrInvalidReviewStatus
	w, env = doRequest(t, r, http.MethodPatch, "/v1/admin/photos/photo-1", gin.H{"verificationStatus": "verified", "reviewedBy": "a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REVIEW_STATUS", env.Error.Code)
	assert.Equal(t, "a", svc.lastReview.reviewer)

	w, env = doRequest(t, r, http.MethodPatch, "/v1/admin/photos/photo-1",
		gin.H{"verificationStatus": "manual_approved", "reviewedBy": strings.Repeat("r", 129)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
}

type fakeLocationService struct {
	loc         *models.PropertyLocation
	err         error
	lastAddress string
}

func (f *fakeLocationService) GetOrCreatePropertyLocation(ctx context.Context, loanID, address string, radius int) (*models.PropertyLocation, error) {
	f.lastAddress = address
	if f.loc != nil || f.err != nil {
		return f.loc, f.err
	}
	return f.SetPropertyLocation(ctx, loanID, address, radius)
}

func (f *fakeLocationService) GetPropertyLocation(context.Context, string) (*models.PropertyLocation, error) {
	return f.loc, f.err
}

func (f *fakeLocationService) SetPropertyLocation(_ context.Context, loanID, _ string, radius int) (*models.PropertyLocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PropertyLocation{LoanID: loanID, Latitude: 1, Longitude: 2, GeofenceRadiusMeters: radius}, nil
}

func TestPropertyLocationHandler(t *testing.T) {
	svc := &fakeLocationService{}
	h := NewPropertyLocationHandler(svc)
	r := gin.New()
	r.GET("/v1/loans/:loanId/property-location", h.Get)
	r.PUT("/v1/loans/:loanId/property-location", h.Put)

	w, env := doRequest(t, r, http.MethodGet, "/v1/loans/loan-1/property-location", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PROPERTY_LOCATION_NOT_FOUND", env.Error.Code)
	assert.Empty(t, svc.lastAddress)

	w, env = doRequest(t, r, http.MethodGet, "/v1/loans/loan-1/property-location?address=55+Trinity+Ave+SW", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "55 Trinity Ave SW", svc.lastAddress)
	var created models.PropertyLocation
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "loan-1", created.LoanID)

	w, env = doRequest(t, r, http.MethodPut, "/v1/loans/loan-1/property-location", gin.H{"address": "1 Main St", "geofenceRadiusMeters": 150})
	require.Equal(t, http.StatusOK, w.Code)
	var loc models.PropertyLocation
	require.NoError(t, json.Unmarshal(env.Data, &loc))
	assert.Equal(t, 150, loc.GeofenceRadiusMeters)

	w, _ = doRequest(t, r, http.MethodPut, "/v1/loans/loan-1/property-location", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = utils.ErrGeocodingDisabled
	w, env = doRequest(t, r, http.MethodPut, "/v1/loans/loan-1/property-location", gin.H{"address": "1 Main St"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "GEOCODING_DISABLED", env.Error.Code)
}

func TestVerificationHandler_Statuses(t *testing.T) {
	r := gin.New()
	r.GET("/v1/verification/statuses", NewVerificationHandler(verification.DefaultThresholds()).Statuses)

	w, env := doRequest(t, r, http.MethodGet, "/v1/verification/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Statuses   []models.StatusInfo `json:"statuses"`
		Thresholds map[string]float64  `json:"thresholds"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Len(t, data.Statuses, 12)
	assert.Equal(t, 50.0, data.Thresholds["gpsMatchMeters"])
	assert.Equal(t, 24.0, data.Thresholds["maxPhotoAgeHours"])
}

func TestHealthHandler(t *testing.T) {
	r := gin.New()
	r.GET("/v1/health", NewHealthHandler(map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}).GetHealth)

	w, env := doRequest(t, r, http.MethodGet, "/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Status       string                       `json:"status"`
		Dependencies map[string]map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "degraded", data.Status)
	assert.Equal(t, "connected", data.Dependencies["database"]["status"])
	assert.Equal(t, "disconnected", data.Dependencies["redis"]["status"])
}
