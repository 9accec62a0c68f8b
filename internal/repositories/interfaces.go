package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
)

// Repository aggregates all entity repositories behind one handle.
type Repository interface {
	Exam() ExamRepository
	Attempt() AttemptRepository
	Review() ReviewRepository
	Audio() AudioRepository
	User() UserRepository
	Group() GroupRepository
}

// TransactionRepository adds transaction control to a Repository. Begin
// returns a Repository bound to the transaction; the returned value also
// implements TransactionRepository for Commit/Rollback.
type TransactionRepository interface {
	Repository
	Begin(ctx context.Context) (Repository, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	SectionKind *models.SectionKind `json:"section_kind"`
	Status      *models.ExamStatus  `json:"status"`
	CreatedBy   *string             `json:"created_by"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
	SortBy      string              `json:"sort_by"`    // "created_at", "title"
	SortOrder   string              `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Status       *models.AttemptStatus `json:"status"`
	StudentID    *string               `json:"student_id"`
	ExamID       *uint                 `json:"exam_id"`
	SectionKinds []models.SectionKind  `json:"section_kinds"`
	DateFrom     *time.Time            `json:"date_from"`
	DateTo       *time.Time            `json:"date_to"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	SortBy       string                `json:"sort_by"`
	SortOrder    string                `json:"sort_order"`
}

// ===== ENTITY REPOSITORIES =====

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	// GetByIDWithDetails preloads the full nested question structure
	// (passages/audios, questions, subquestions, writing tasks, speaking
	// parts).
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error)
	GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
	// GetPendingReview lists submitted attempts whose section kind needs a
	// mentor (writing/speaking), newest submission first.
	GetPendingReview(ctx context.Context, filters AttemptFilters) ([]*models.Attempt, int64, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uint) (*models.Review, error)
	GetByAttemptAndMentor(ctx context.Context, attemptID uint, mentorID string) (*models.Review, error)
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Review, error)
	Update(ctx context.Context, review *models.Review) error
}

type AudioRepository interface {
	Upsert(ctx context.Context, audio *models.AttemptAudio) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAudio, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetRole(ctx context.Context, id string) (models.UserRole, error)
	Upsert(ctx context.Context, user *models.User) error
}

type GroupRepository interface {
	GetStudentGroup(ctx context.Context, studentID string) (*models.Group, error)
}

// ===== ERROR HELPERS =====

// IsNotFoundError reports whether a repository error means the record does
// not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
