package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/scoring"
	"github.com/examforge/exam-service/internal/storage"
	"github.com/examforge/exam-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	exams     ExamService
	audio     storage.AudioStore
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAttemptService(
	repo repositories.Repository,
	exams ExamService,
	audio storage.AudioStore,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) AttemptService {
	return &attemptService{
		repo:      repo,
		exams:     exams,
		audio:     audio,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== SUBMISSION =====

func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, studentID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting attempt",
		"exam_id", req.ExamID,
		"student_id", studentID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	role, err := s.repo.User().GetRole(ctx, studentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user role: %w", err)
	}
	if role != models.RoleStudent {
		return nil, ErrOnlyStudentsCanSubmit
	}

	exam, err := s.exams.GetByID(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamActive {
		return nil, ErrExamNotActive
	}

	// Students without a group still submit; the group is informational.
	group, err := s.repo.Group().GetStudentGroup(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get student group: %w", err)
	}

	attempt, created, err := s.getOrCreateAttempt(ctx, exam, studentID, group)
	if err != nil {
		return nil, err
	}
	if !created && attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	if err := attempt.SetAnswers(req.Answers); err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	now := time.Now()
	attempt.Status = models.AttemptSubmitted
	attempt.SubmittedAt = &now

	var band *float64
	if exam.SectionKind.IsAutoScored() {
		units, err := s.exams.GradingUnits(ctx, exam.ID)
		if err != nil {
			return nil, err
		}

		score := scoring.ComputeAutoScore(units, req.Answers)
		band = &score

		switch exam.SectionKind {
		case models.SectionReading:
			attempt.ReadingScore = &score
		case models.SectionListening:
			attempt.ListeningScore = &score
		}
		attempt.TotalScore = &score
		attempt.Status = models.AttemptCompleted
		attempt.CompletedAt = &now
	}

	txRepo, err := s.repo.(repositories.TransactionRepository).Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			txRepo.(repositories.TransactionRepository).Rollback(ctx)
		}
	}()

	if err = txRepo.Attempt().Update(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt: %w", err)
	}

	if err = s.storeAudioUploads(ctx, txRepo, attempt, req.Audio); err != nil {
		return nil, err
	}

	if err = txRepo.(repositories.TransactionRepository).Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishSubmitted(ctx, exam, attempt, band)

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"student_id", studentID,
		"status", attempt.Status)

	return s.GetByID(ctx, attempt.ID, studentID)
}

func (s *attemptService) getOrCreateAttempt(ctx context.Context, exam *models.Exam, studentID string, group *models.Group) (*models.Attempt, bool, error) {
	attempt, err := s.repo.Attempt().GetByExamAndStudent(ctx, exam.ID, studentID)
	if err == nil {
		return attempt, false, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to get attempt: %w", err)
	}

	attempt = &models.Attempt{
		ExamID:    exam.ID,
		StudentID: studentID,
		Status:    models.AttemptInProgress,
		StartedAt: time.Now(),
	}
	if group != nil {
		attempt.GroupID = &group.ID
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, false, fmt.Errorf("failed to create attempt: %w", err)
	}
	return attempt, true, nil
}

// storeAudioUploads routes multipart audio fields onto speaking parts by
// their field naming convention. Fields whose part id cannot be parsed are
// skipped, matching the tolerant submission contract.
func (s *attemptService) storeAudioUploads(ctx context.Context, repo repositories.Repository, attempt *models.Attempt, uploads []AudioUpload) error {
	for _, upload := range uploads {
		partID, ok := ParseAudioPartID(upload.FieldName)
		if !ok {
			s.logger.Warn("Skipping audio upload with unparsable field name",
				"attempt_id", attempt.ID,
				"field", upload.FieldName)
			continue
		}

		key, err := s.audio.Put(storage.AudioKey(attempt.ID, partID, upload.Filename), upload.Content)
		if err != nil {
			return fmt.Errorf("failed to store audio for part %d: %w", partID, err)
		}

		record := &models.AttemptAudio{
			AttemptID: attempt.ID,
			PartID:    partID,
			FileKey:   key,
		}
		if err := repo.Audio().Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to save audio record for part %d: %w", partID, err)
		}
	}
	return nil
}

// ParseAudioPartID extracts the speaking part id from an upload field name
// like "speaking_part_3_audio": the number before the trailing "_audio".
func ParseAudioPartID(field string) (uint, bool) {
	if !strings.HasSuffix(field, "_audio") {
		return 0, false
	}
	parts := strings.Split(strings.TrimSuffix(field, "_audio"), "_")
	if len(parts) == 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(parts[len(parts)-1], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (s *attemptService) publishSubmitted(ctx context.Context, exam *models.Exam, attempt *models.Attempt, band *float64) {
	submitted := events.NewAttemptSubmittedEvent(events.AttemptSubmittedEvent{
		AttemptID:      attempt.ID,
		ExamID:         exam.ID,
		ExamTitle:      exam.Title,
		SectionKind:    exam.SectionKind,
		StudentID:      attempt.StudentID,
		SubmittedAt:    *attempt.SubmittedAt,
		ReviewRequired: !exam.SectionKind.IsAutoScored(),
	})
	if err := s.publisher.PublishAttemptEvent(ctx, submitted); err != nil {
		s.logger.Error("Failed to publish attempt submitted event",
			"attempt_id", attempt.ID, "error", err)
	}

	if band == nil {
		return
	}
	scored := events.NewAttemptAutoScoredEvent(events.AttemptAutoScoredEvent{
		AttemptID:   attempt.ID,
		ExamID:      exam.ID,
		ExamTitle:   exam.Title,
		SectionKind: exam.SectionKind,
		StudentID:   attempt.StudentID,
		Band:        *band,
		ScoredAt:    *attempt.CompletedAt,
	})
	if err := s.publisher.PublishAttemptEvent(ctx, scored); err != nil {
		s.logger.Error("Failed to publish auto-scored event",
			"attempt_id", attempt.ID, "error", err)
	}
}

// ===== GET / LIST =====

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	canAccess, err := s.canAccessAttempt(ctx, attempt, userID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, NewPermissionError(userID, id, "attempt", "read", "not owner or insufficient permissions")
	}

	return buildAttemptResponse(attempt, true), nil
}

func (s *attemptService) ListMine(ctx context.Context, studentID string, filters repositories.AttemptFilters) ([]*AttemptResponse, int64, error) {
	filters.StudentID = &studentID
	if filters.SortBy == "" {
		filters.SortBy = "created_at"
	}

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = buildAttemptResponse(attempt, false)
	}
	return responses, total, nil
}

func (s *attemptService) canAccessAttempt(ctx context.Context, attempt *models.Attempt, userID string) (bool, error) {
	if attempt.StudentID == userID {
		return true, nil
	}
	role, err := s.repo.User().GetRole(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user role: %w", err)
	}
	return role == models.RoleMentor || role == models.RoleAdmin, nil
}

func buildAttemptResponse(attempt *models.Attempt, includeAnswers bool) *AttemptResponse {
	resp := &AttemptResponse{
		ID:             attempt.ID,
		ExamID:         attempt.ExamID,
		ExamTitle:      attempt.Exam.Title,
		SectionKind:    attempt.Exam.SectionKind,
		StudentID:      attempt.StudentID,
		Status:         attempt.Status,
		ReadingScore:   attempt.ReadingScore,
		ListeningScore: attempt.ListeningScore,
		TotalScore:     attempt.TotalScore,
		StartedAt:      attempt.StartedAt,
		SubmittedAt:    attempt.SubmittedAt,
		CompletedAt:    attempt.CompletedAt,
		Reviews:        make([]*models.Review, 0, len(attempt.Reviews)),
	}

	if includeAnswers {
		resp.Answers = attempt.AnswerMap()
	}
	for _, audio := range attempt.AudioFiles {
		resp.AudioFiles = append(resp.AudioFiles, AttemptAudioResponse{
			PartID:  audio.PartID,
			FileKey: audio.FileKey,
		})
	}
	for i := range attempt.Reviews {
		resp.Reviews = append(resp.Reviews, &attempt.Reviews[i])
	}
	return resp
}
