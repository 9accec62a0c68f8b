package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
)

type ReviewHandler struct {
	BaseHandler
	reviewService services.ReviewService
}

func NewReviewHandler(reviewService services.ReviewService, logger utils.Logger) *ReviewHandler {
	return &ReviewHandler{
		BaseHandler:   NewBaseHandler(logger),
		reviewService: reviewService,
	}
}

// SubmitReview records a mentor's criteria scores for a writing or
// speaking attempt.
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	mentorID := h.currentUserID(c)
	if mentorID == "" {
		return
	}

	var req services.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting review", "attempt_id", attemptID)

	review, err := h.reviewService.SubmitReview(c.Request.Context(), attemptID, &req, mentorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetAttemptReviews lists all reviews of one attempt.
func (h *ReviewHandler) GetAttemptReviews(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	reviews, err := h.reviewService.GetByAttempt(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, reviews)
}

// ListPendingReviews lists submitted writing/speaking attempts waiting for
// a mentor.
func (h *ReviewHandler) ListPendingReviews(c *gin.Context) {
	mentorID := h.currentUserID(c)
	if mentorID == "" {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)
	filters := repositories.AttemptFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	attempts, total, err := h.reviewService.PendingReviews(c.Request.Context(), mentorID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PagedResponse{Items: attempts, Total: total})
}
