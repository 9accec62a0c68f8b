package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/examforge/exam-service/internal/cache"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/scoring"
	"github.com/examforge/exam-service/internal/validator"
)

const unitsCacheTTL = 15 * time.Minute

type examService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	role, err := s.repo.User().GetRole(ctx, creatorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	if role != models.RoleMentor && role != models.RoleAdmin {
		return nil, NewPermissionError(creatorID, 0, "exam", "create", "students cannot create exams")
	}

	duration := req.Duration
	if duration == 0 {
		duration = 60
	}

	exam := &models.Exam{
		Title:       req.Title,
		Description: req.Description,
		SectionKind: req.SectionKind,
		Status:      models.ExamDraft,
		Duration:    duration,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created",
		"exam_id", exam.ID,
		"section_kind", exam.SectionKind,
		"creator_id", creatorID)

	return exam, nil
}

func (s *examService) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}
	return exam, nil
}

func (s *examService) GetByIDWithDetails(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam with details: %w", err)
	}
	return exam, nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	exams, total, err := s.repo.Exam().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

func (s *examService) Publish(ctx context.Context, id uint, userID string) error {
	exam, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	role, err := s.repo.User().GetRole(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user role: %w", err)
	}
	if exam.CreatedBy != userID && role != models.RoleAdmin {
		return NewPermissionError(userID, id, "exam", "publish", "not the exam creator")
	}

	exam.Status = models.ExamActive
	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return fmt.Errorf("failed to publish exam: %w", err)
	}

	// The question set may have changed while drafting.
	s.invalidateUnits(ctx, id)

	s.logger.Info("Exam published", "exam_id", id, "user_id", userID)
	return nil
}

// GradingUnits returns the exam's flattened leaf grading units. The
// flattening requires the full nested preload, so results are cached in
// Redis; a cache failure falls back to the database rather than failing
// the submission.
func (s *examService) GradingUnits(ctx context.Context, examID uint) ([]scoring.GradingUnit, error) {
	key := unitsCacheKey(examID)

	var units []scoring.GradingUnit
	err := s.cache.Get(ctx, key, &units)
	if err == nil {
		return units, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Grading unit cache read failed", "exam_id", examID, "error", err)
	}

	exam, err := s.GetByIDWithDetails(ctx, examID)
	if err != nil {
		return nil, err
	}
	units = exam.GradingUnits()

	if err := s.cache.Set(ctx, key, units, unitsCacheTTL); err != nil {
		s.logger.Warn("Grading unit cache write failed", "exam_id", examID, "error", err)
	}

	return units, nil
}

func (s *examService) invalidateUnits(ctx context.Context, examID uint) {
	if err := s.cache.Delete(ctx, unitsCacheKey(examID)); err != nil {
		s.logger.Warn("Grading unit cache invalidation failed", "exam_id", examID, "error", err)
	}
}

func unitsCacheKey(examID uint) string {
	return fmt.Sprintf("exam:units:%d", examID)
}
