package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/photoverify_api/internal/models"
	"github.com/GTDGit/photoverify_api/internal/utils"
	"github.com/GTDGit/photoverify_api/internal/verification"
)

// ReviewerHeader identifies the reviewer when the request body does not.
const ReviewerHeader = "X-Reviewer"

// AdminPhotoHandler handles the reviewer queue.
type AdminPhotoHandler struct {
	svc PhotoService
}

// NewAdminPhotoHandler constructs an AdminPhotoHandler.
func NewAdminPhotoHandler(svc PhotoService) *AdminPhotoHandler {
	return &AdminPhotoHandler{svc: svc}
}

// List handles GET /v1/admin/photos?status=&loanId=&page=&limit=
func (h *AdminPhotoHandler) List(c *gin.Context) {
	filter := models.PhotoFilter{
		LoanID: c.Query("loanId"),
		Status: verification.Status(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}

	photos, total, err := h.svc.ListForReview(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithPagination(c, http.StatusOK, "Photos retrieved", newPhotoResponses(photos), filter.Page, filter.Limit, total)
}

// Review handles PATCH /v1/admin/photos/:id
func (h *AdminPhotoHandler) Review(c *gin.Context) {
	var req models.ReviewPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	reviewer := req.ReviewedBy
	if reviewer == "" {
		reviewer = c.GetHeader(ReviewerHeader)
	}

	photo, err := h.svc.Review(c.Request.Context(), c.Param("id"), req.VerificationStatus, req.VerificationNotes, reviewer)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, http.StatusOK, "Photo reviewed", newPhotoResponse(photo))
}
