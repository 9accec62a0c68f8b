package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return e.db.WithContext(ctx).Create(exam).Error
}

func (e ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e ExamPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).
		Preload("ReadingPassages", orderByPosition).
		Preload("ReadingPassages.Questions", orderByPosition).
		Preload("ReadingPassages.Questions.SubQuestions", orderByPosition).
		Preload("ListeningAudios", orderByPosition).
		Preload("ListeningAudios.Questions", orderByPosition).
		Preload("ListeningAudios.Questions.SubQuestions", orderByPosition).
		Preload("WritingTasks", orderByPosition).
		Preload("SpeakingParts", orderByPosition).
		First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	return e.db.WithContext(ctx).Save(exam).Error
}

func (e ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	return e.db.WithContext(ctx).Delete(&models.Exam{}, id).Error
}

func (e ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Exam{})
	if filters.SectionKind != nil {
		query = query.Where("section_kind = ?", *filters.SectionKind)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, []string{"created_at", "title"})

	if err := query.Find(&exams).Error; err != nil {
		return nil, 0, err
	}
	return exams, total, nil
}

func orderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
