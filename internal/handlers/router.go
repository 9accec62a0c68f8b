package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/examforge/exam-service/internal/services"
	"github.com/examforge/exam-service/internal/utils"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	attemptHandler *AttemptHandler
	reviewHandler  *ReviewHandler
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Exam(), serviceManager.Export(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), logger),
		reviewHandler:  NewReviewHandler(serviceManager.Review(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware)
	{
		// Exam routes
		exams := v1.Group("/exams")
		{
			exams.POST("", hm.examHandler.CreateExam)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("/:id/details", hm.examHandler.GetExamWithDetails)
			exams.POST("/:id/publish", hm.examHandler.PublishExam)
			exams.GET("/:id/results/export", hm.examHandler.ExportExamResults)

			// Attempt submission is keyed by the exam being taken
			exams.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/my", hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/reviews", hm.reviewHandler.GetAttemptReviews)
			attempts.POST("/:id/reviews", hm.reviewHandler.SubmitReview)
		}

		// Review routes
		reviews := v1.Group("/reviews")
		{
			reviews.GET("/pending", hm.reviewHandler.ListPendingReviews)
		}
	}
}
