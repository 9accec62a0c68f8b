package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
)

type ExamHandler struct {
	BaseHandler
	examService   services.ExamService
	exportService services.ExportService
}

func NewExamHandler(examService services.ExamService, exportService services.ExportService, logger utils.Logger) *ExamHandler {
	return &ExamHandler{
		BaseHandler:   NewBaseHandler(logger),
		examService:   examService,
		exportService: exportService,
	}
}

// CreateExam creates a draft exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	var req services.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating exam", "title", req.Title, "section_kind", req.SectionKind)

	exam, err := h.examService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, exam)
}

// ListExams lists exams with optional section/status filters.
func (h *ExamHandler) ListExams(c *gin.Context) {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)
	filters := repositories.ExamFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	if kind := c.Query("section_kind"); kind != "" {
		sectionKind := models.SectionKind(kind)
		filters.SectionKind = &sectionKind
	}
	if status := c.Query("status"); status != "" {
		examStatus := models.ExamStatus(status)
		filters.Status = &examStatus
	}

	exams, total, err := h.examService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PagedResponse{Items: exams, Total: total})
}

// GetExam returns exam metadata without its question structure.
func (h *ExamHandler) GetExam(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// GetExamWithDetails returns the exam with its full nested question
// structure.
func (h *ExamHandler) GetExamWithDetails(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}

	exam, err := h.examService.GetByIDWithDetails(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, exam)
}

// PublishExam activates a draft exam so students can take it.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Publishing exam", "exam_id", examID)

	if err := h.examService.Publish(c.Request.Context(), examID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Exam published"})
}

// ExportExamResults streams the exam's attempt results as an XLSX
// workbook.
func (h *ExamHandler) ExportExamResults(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Exporting exam results", "exam_id", examID)

	data, err := h.exportService.ExportExamResults(c.Request.Context(), examID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("exam_%d_results.xlsx", examID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
