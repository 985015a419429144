package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// PhotoService is the photo workflow used by the HTTP layer.
type PhotoService interface {
	CreateUploadURL(ctx context.Context, loanID string, req *models.UploadURLRequest) (*models.UploadURLResponse, error)
	RegisterPhoto(ctx context.Context, loanID string, req *models.RegisterPhotoRequest) (*models.VerificationPhoto, error)
	Reverify(ctx context.Context, id string) (*models.VerificationPhoto, error)
	Review(ctx context.Context, id string, status verification.Status, notes *string, reviewer string) (*models.VerificationPhoto, error)
	Get(ctx context.Context, id string) (*models.VerificationPhoto, error)
	ListByLoan(ctx context.Context, loanID string) ([]models.VerificationPhoto, error)
	ListForReview(ctx context.Context, f *models.PhotoFilter) ([]models.VerificationPhoto, int, error)
	Delete(ctx context.Context, id string) error
}

// PhotoHandler handles loan photo capture endpoints.
type PhotoHandler struct {
	svc PhotoService
}

// NewPhotoHandler creates a new PhotoHandler.
func NewPhotoHandler(svc PhotoService) *PhotoHandler {
	return &PhotoHandler{svc: svc}
}

// CreateUploadURL handles POST /v1/loans/:loanId/photos/upload-url
func (h *PhotoHandler) CreateUploadURL(c *gin.Context) {
	var req models.UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.svc.CreateUploadURL(c.Request.Context(), c.Param("loanId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Upload URL created", res)
}

// Register handles POST /v1/loans/:loanId/photos
func (h *PhotoHandler) Register(c *gin.Context) {
	var req models.RegisterPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	photo, err := h.svc.RegisterPhoto(c.Request.Context(), c.Param("loanId"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusCreated, "Photo registered", newPhotoResponse(photo))
}

// ListByLoan handles GET /v1/loans/:loanId/photos
func (h *PhotoHandler) ListByLoan(c *gin.Context) {
	photos, err := h.svc.ListByLoan(c.Request.Context(), c.Param("loanId"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Photos retrieved", newPhotoResponses(photos))
}

// Get handles GET /v1/photos/:id
func (h *PhotoHandler) Get(c *gin.Context) {
	photo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Photo retrieved", newPhotoResponse(photo))
}

// Delete handles DELETE /v1/photos/:id
func (h *PhotoHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Photo deleted", nil)
}

// Reverify handles POST /v1/photos/:id/reverify
func (h *PhotoHandler) Reverify(c *gin.Context) {
	photo, err := h.svc.Reverify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Photo re-verified", newPhotoResponse(photo))
}
