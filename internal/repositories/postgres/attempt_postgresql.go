package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Preload("Student").
		Preload("Exam").
		Preload("Exam.WritingTasks", orderByPosition).
		Preload("Exam.SpeakingParts", orderByPosition).
		Preload("AudioFiles").
		Preload("Reviews").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) GetByExamAndStudent(ctx context.Context, examID uint, studentID string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a AttemptPostgreSQL) Update(ctx context.Context, attempt *models.Attempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	var attempts []*models.Attempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.Attempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, []string{"created_at", "submitted_at"})

	if err := query.Preload("Student").Preload("Exam").Preload("Group").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

func (a AttemptPostgreSQL) GetPendingReview(ctx context.Context, filters repositories.AttemptFilters) ([]*models.Attempt, int64, error) {
	status := models.AttemptSubmitted
	filters.Status = &status
	if len(filters.SectionKinds) == 0 {
		filters.SectionKinds = []models.SectionKind{models.SectionWriting, models.SectionSpeaking}
	}
	if filters.SortBy == "" {
		filters.SortBy = "submitted_at"
	}
	return a.List(ctx, filters)
}

func (a AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("attempts.status = ?", *filters.Status)
	}
	if filters.StudentID != nil {
		query = query.Where("attempts.student_id = ?", *filters.StudentID)
	}
	if filters.ExamID != nil {
		query = query.Where("attempts.exam_id = ?", *filters.ExamID)
	}
	if len(filters.SectionKinds) > 0 {
		query = query.
			Joins("JOIN exams ON exams.id = attempts.exam_id").
			Where("exams.section_kind IN ?", filters.SectionKinds)
	}
	if filters.DateFrom != nil {
		query = query.Where("attempts.created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("attempts.created_at <= ?", *filters.DateTo)
	}
	return query
}

type AudioPostgreSQL struct {
	db *gorm.DB
}

func NewAudioPostgreSQL(db *gorm.DB) repositories.AudioRepository {
	return &AudioPostgreSQL{db: db}
}

// Upsert creates or replaces the audio record for (attempt, part), so a
// re-recorded answer overwrites the previous file key.
func (a AudioPostgreSQL) Upsert(ctx context.Context, audio *models.AttemptAudio) error {
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "part_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_key", "updated_at"}),
		}).
		Create(audio).Error
}

func (a AudioPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAudio, error) {
	var files []*models.AttemptAudio
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("part_id ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}
