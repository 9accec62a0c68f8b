package services

import (
	"context"
	"io"
	"time"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/scoring"
)

// ServiceManager aggregates all application services.
type ServiceManager interface {
	Exam() ExamService
	Attempt() AttemptService
	Review() ReviewService
	Export() ExportService
}

// ===== REQUEST / RESPONSE STRUCTURES =====

// AudioUpload is one uploaded recording from a multipart submission. The
// field name carries the routing information ("speaking_part_<id>_audio").
type AudioUpload struct {
	FieldName string
	Filename  string
	Content   io.Reader
}

type SubmitAttemptRequest struct {
	ExamID  uint              `json:"exam_id" validate:"required"`
	Answers scoring.AnswerMap `json:"answers"`
	Audio   []AudioUpload     `json:"-"`
}

type AttemptResponse struct {
	ID          uint                  `json:"id"`
	ExamID      uint                  `json:"exam_id"`
	ExamTitle   string                `json:"exam_title,omitempty"`
	SectionKind models.SectionKind    `json:"section_kind,omitempty"`
	StudentID   string                `json:"student_id"`
	Status      models.AttemptStatus  `json:"status"`
	Answers     scoring.AnswerMap     `json:"answers,omitempty"`

	ReadingScore   *float64 `json:"reading_score,omitempty"`
	ListeningScore *float64 `json:"listening_score,omitempty"`
	TotalScore     *float64 `json:"total_score,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	AudioFiles []AttemptAudioResponse `json:"audio_files,omitempty"`
	Reviews    []*models.Review       `json:"reviews,omitempty"`
}

type AttemptAudioResponse struct {
	PartID  uint   `json:"part_id"`
	FileKey string `json:"file_key"`
}

type SubmitReviewRequest struct {
	TaskAchievement   float64 `json:"task_achievement" validate:"band_score"`
	CoherenceCohesion float64 `json:"coherence_cohesion" validate:"band_score"`
	LexicalResource   float64 `json:"lexical_resource" validate:"band_score"`
	GrammaticalRange  float64 `json:"grammatical_range" validate:"band_score"`
	Feedback          string  `json:"feedback" validate:"max=5000"`
}

type CreateExamRequest struct {
	Title       string             `json:"title" validate:"required,min=1,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=1000"`
	SectionKind models.SectionKind `json:"section_kind" validate:"required,section_kind"`
	Duration    int                `json:"duration" validate:"omitempty,min=5,max=300"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error)
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error)
	List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)
	Publish(ctx context.Context, id uint, userID string) error
	// GradingUnits returns the exam's flattened leaf units, served from
	// cache when possible.
	GradingUnits(ctx context.Context, examID uint) ([]scoring.GradingUnit, error)
}

type AttemptService interface {
	// Submit records a student's answers for an exam, routes uploaded
	// audio, and auto-scores reading/listening sections.
	Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	// ListMine returns the calling student's attempts, newest first.
	ListMine(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
}

type ReviewService interface {
	// SubmitReview upserts the mentor's review for an attempt and
	// completes the attempt with the averaged overall score.
	SubmitReview(ctx context.Context, attemptID uint, req *SubmitReviewRequest, mentorID string) (*models.Review, error)
	GetByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.Review, error)
	// PendingReviews lists submitted writing/speaking attempts awaiting a
	// mentor.
	PendingReviews(ctx context.Context, mentorID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error)
}

type ExportService interface {
	// ExportExamResults renders all attempts of an exam into an XLSX
	// workbook.
	ExportExamResults(ctx context.Context, examID uint, userID string) ([]byte, error)
}
