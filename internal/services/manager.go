package services

import (
	"log/slog"

	"github.com/examforge/exam-service/internal/cache"
	"github.com/examforge/exam-service/internal/events"
	"github.com/examforge/exam-service/internal/repositories"
	"github.com/examforge/exam-service/internal/storage"
	"github.com/examforge/exam-service/internal/validator"
)

type serviceManager struct {
	exam    ExamService
	attempt AttemptService
	review  ReviewService
	export  ExportService
}

// NewServiceManager wires all services onto the shared repository, cache,
// audio store and event publisher.
func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	audio storage.AudioStore,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) ServiceManager {
	examService := NewExamService(repo, cacheService, logger, validator)
	return &serviceManager{
		exam:    examService,
		attempt: NewAttemptService(repo, examService, audio, publisher, logger, validator),
		review:  NewReviewService(repo, publisher, logger, validator),
		export:  NewExportService(repo, logger),
	}
}

func (m *serviceManager) Exam() ExamService       { return m.exam }
func (m *serviceManager) Attempt() AttemptService { return m.attempt }
func (m *serviceManager) Review() ReviewService   { return m.review }
func (m *serviceManager) Export() ExportService   { return m.export }
