package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/validator"
)

type reviewService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewReviewService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ReviewService {
	return &reviewService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *reviewService) SubmitReview(ctx context.Context, attemptID uint, req *SubmitReviewRequest, mentorID string) (*models.Review, error) {
	s.logger.Info("Submitting review",
		"attempt_id", attemptID,
		"mentor_id", mentorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	role, err := s.repo.User().GetRole(ctx, mentorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	if role != models.RoleMentor && role != models.RoleAdmin {
		return nil, ErrOnlyMentorsCanReview
	}

	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Exam.SectionKind.IsAutoScored() {
		return nil, ErrSectionNotReviewable
	}
	if attempt.Status != models.AttemptSubmitted && attempt.Status != models.AttemptCompleted {
		return nil, ErrAttemptNotReadyForReview
	}

	review, created, err := s.getOrCreateReview(ctx, attemptID, mentorID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	review.TaskAchievement = req.TaskAchievement
	review.CoherenceCohesion = req.CoherenceCohesion
	review.LexicalResource = req.LexicalResource
	review.GrammaticalRange = req.GrammaticalRange
	review.Feedback = req.Feedback
	review.ReviewedAt = now
	review.OverallScore = review.CriteriaMean()

	attempt.TotalScore = &review.OverallScore
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now

	txRepo, err := s.repo.(repositories.TransactionRepository).Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			txRepo.(repositories.TransactionRepository).Rollback(ctx)
		}
	}()

	if created {
		err = txRepo.Review().Create(ctx, review)
	} else {
		err = txRepo.Review().Update(ctx, review)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	if err = txRepo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	if err = txRepo.(repositories.TransactionRepository).Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	event := events.NewReviewCompletedEvent(events.ReviewCompletedEvent{
		ReviewID:     review.ID,
		AttemptID:    attempt.ID,
		ExamID:       attempt.ExamID,
		StudentID:    attempt.StudentID,
		MentorID:     mentorID,
		OverallScore: review.OverallScore,
		ReviewedAt:   review.ReviewedAt,
	})
	if err := s.publisher.PublishAttemptEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish review completed event",
			"review_id", review.ID, "error", err)
	}

	s.logger.Info("Review submitted",
		"review_id", review.ID,
		"attempt_id", attempt.ID,
		"overall_score", review.OverallScore)

	return review, nil
}

func (s *reviewService) getOrCreateReview(ctx context.Context, attemptID uint, mentorID string) (*models.Review, bool, error) {
	review, err := s.repo.Review().GetByAttemptAndMentor(ctx, attemptID, mentorID)
	if err == nil {
		return review, false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to get review: %w", err)
	}
	return &models.Review{
		AttemptID: attemptID,
		MentorID:  mentorID,
	}, true, nil
}

func (s *reviewService) GetByAttempt(ctx context.Context, attemptID uint, userID string) ([]*models.Review, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.StudentID != userID {
		role, err := s.repo.User().GetRole(ctx, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user role: %w", err)
		}
		if role != models.RoleMentor && role != models.RoleAdmin {
			return nil, NewPermissionError(userID, attemptID, "review", "read", "not the attempt owner")
		}
	}

	reviews, err := s.repo.Review().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

func (s *reviewService) PendingReviews(ctx context.Context, mentorID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	role, err := s.repo.User().GetRole(ctx, mentorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, fmt.Errorf("failed to get user role: %w", err)
	}
	if role != models.RoleMentor && role != models.RoleAdmin {
		return nil, 0, ErrOnlyMentorsCanReview
	}

	attempts, total, err := s.repo.Attempt().GetPendingReview(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending reviews: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = buildAttemptResponse(attempt, true)
	}
	return responses, total, nil
}
