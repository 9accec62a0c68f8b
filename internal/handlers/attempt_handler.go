package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/scoring"
	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
)

// maxSubmissionMemory bounds the in-memory part of multipart parsing;
// larger audio uploads spill to temp files.
const maxSubmissionMemory = 32 << 20

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

type submitAttemptJSON struct {
	Answers scoring.AnswerMap `json:"answers"`
}

// SubmitAttempt records a student's exam submission. Accepts either a JSON
// body or a multipart form; speaking recordings only travel in the
// multipart variant.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	examID := h.parseIDParam(c, "id")
	if examID == 0 {
		return
	}
	studentID := h.currentUserID(c)
	if studentID == "" {
		return
	}

	h.LogRequest(c, "Submitting attempt", "exam_id", examID)

	req := &services.SubmitAttemptRequest{ExamID: examID}

	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		closers, ok := h.bindMultipartSubmission(c, req)
		if !ok {
			return
		}
		defer func() {
			for _, closer := range closers {
				closer.Close()
			}
		}()
	} else {
		var body submitAttemptJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return
		}
		req.Answers = body.Answers
	}

	if req.Answers == nil {
		req.Answers = scoring.AnswerMap{}
	}

	resp, err := h.attemptService.Submit(c.Request.Context(), req, studentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// bindMultipartSubmission fills the request from form fields. Answer keys
// use the q_/part_/task_ prefixes; a trailing "[]" marks multi-select
// fields and is stripped. File fields ending in "_audio" carry speaking
// recordings.
func (h *AttemptHandler) bindMultipartSubmission(c *gin.Context, req *services.SubmitAttemptRequest) ([]multipart.File, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid multipart form",
			Details: err.Error(),
		})
		return nil, false
	}

	req.Answers = collectFormAnswers(form.Value)

	var closers []multipart.File
	for field, headers := range form.File {
		if !strings.HasSuffix(field, "_audio") || len(headers) == 0 {
			continue
		}
		file, err := headers[0].Open()
		if err != nil {
			for _, closer := range closers {
				closer.Close()
			}
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Failed to read uploaded file",
				Details: err.Error(),
			})
			return nil, false
		}
		closers = append(closers, file)
		req.Audio = append(req.Audio, services.AudioUpload{
			FieldName: field,
			Filename:  headers[0].Filename,
			Content:   file,
		})
	}
	return closers, true
}

func collectFormAnswers(values map[string][]string) scoring.AnswerMap {
	answers := scoring.AnswerMap{}
	for key, fieldValues := range values {
		key = strings.TrimSuffix(key, "[]")
		if !isAnswerKey(key) || len(fieldValues) == 0 {
			continue
		}
		if len(fieldValues) > 1 {
			answers[key] = scoring.Sequence(fieldValues...)
		} else {
			answers[key] = scoring.Scalar(fieldValues[0])
		}
	}
	return answers
}

func isAnswerKey(key string) bool {
	return strings.HasPrefix(key, "q_") ||
		strings.HasPrefix(key, "part_") ||
		strings.HasPrefix(key, "task_")
}

// GetAttempt returns one attempt with answers, audio keys and reviews.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	resp, err := h.attemptService.GetByID(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListMyAttempts returns the calling student's attempts.
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	userID := h.currentUserID(c)
	if userID == "" {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)
	filters := repositories.AttemptFilters{
		Limit:  size,
		Offset: (page - 1) * size,
	}

	attempts, total, err := h.attemptService.ListMine(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PagedResponse{Items: attempts, Total: total})
}
