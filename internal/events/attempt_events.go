package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/examforge/exam-service/internal/models"
)

// EventType represents different types of attempt lifecycle events
type EventType string

const (
	// Attempt events
	EventAttemptSubmitted  EventType = "attempt.submitted"
	EventAttemptAutoScored EventType = "attempt.auto_scored"

	// Review events
	EventReviewCompleted EventType = "review.completed"
)

const eventSource = "exam-service"

// AttemptEvent is the envelope shared by all published events.
type AttemptEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type AttemptSubmittedEvent struct {
	AttemptID   uint               `json:"attempt_id"`
	ExamID      uint               `json:"exam_id"`
	ExamTitle   string             `json:"exam_title"`
	SectionKind models.SectionKind `json:"section_kind"`
	StudentID   string             `json:"student_id"`
	SubmittedAt time.Time          `json:"submitted_at"`
	// ReviewRequired is set for writing/speaking sections that wait for a
	// mentor.
	ReviewRequired bool `json:"review_required"`
}

type AttemptAutoScoredEvent struct {
	AttemptID   uint               `json:"attempt_id"`
	ExamID      uint               `json:"exam_id"`
	ExamTitle   string             `json:"exam_title"`
	SectionKind models.SectionKind `json:"section_kind"`
	StudentID   string             `json:"student_id"`
	Band        float64            `json:"band"`
	ScoredAt    time.Time          `json:"scored_at"`
}

type ReviewCompletedEvent struct {
	ReviewID     uint      `json:"review_id"`
	AttemptID    uint      `json:"attempt_id"`
	ExamID       uint      `json:"exam_id"`
	StudentID    string    `json:"student_id"`
	MentorID     string    `json:"mentor_id"`
	OverallScore float64   `json:"overall_score"`
	ReviewedAt   time.Time `json:"reviewed_at"`
}

// Event factory functions

func NewAttemptSubmittedEvent(data AttemptSubmittedEvent) *AttemptEvent {
	return newEvent(EventAttemptSubmitted, data)
}

func NewAttemptAutoScoredEvent(data AttemptAutoScoredEvent) *AttemptEvent {
	return newEvent(EventAttemptAutoScored, data)
}

func NewReviewCompletedEvent(data ReviewCompletedEvent) *AttemptEvent {
	return newEvent(EventReviewCompleted, data)
}

func newEvent(eventType EventType, data interface{}) *AttemptEvent {
	return &AttemptEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}
