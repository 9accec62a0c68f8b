package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/scoring"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptExpired    AttemptStatus = "expired"
)

type Attempt struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	ExamID    uint   `json:"exam_id" gorm:"not null;index:idx_attempts_exam_student,unique"`
	StudentID string `json:"student_id" gorm:"not null;size:255;index:idx_attempts_exam_student,unique"`
	GroupID   *uint  `json:"group_id" gorm:"index"`

	Status AttemptStatus `json:"status" gorm:"not null;default:in_progress;index" validate:"omitempty,oneof=in_progress submitted completed expired"`

	// Submitted answers keyed q_<subquestion>, part_<speaking part> or
	// task_<writing task>, stored as JSONB.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	// Band scores (0.0-9.0 in 0.5 steps)
	ReadingScore   *float64 `json:"reading_score" validate:"omitempty,band_score"`
	ListeningScore *float64 `json:"listening_score" validate:"omitempty,band_score"`
	TotalScore     *float64 `json:"total_score" validate:"omitempty,band_score"`

	StartedAt   time.Time  `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Exam       Exam           `json:"exam" gorm:"foreignKey:ExamID"`
	Student    User           `json:"student" gorm:"foreignKey:StudentID"`
	Group      *Group         `json:"group,omitempty" gorm:"foreignKey:GroupID"`
	AudioFiles []AttemptAudio `json:"audio_files,omitempty" gorm:"foreignKey:AttemptID"`
	Reviews    []Review       `json:"reviews,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// AnswerMap decodes the stored answers column. A missing or malformed
// column decodes to an empty map; submissions never fail scoring.
func (a *Attempt) AnswerMap() scoring.AnswerMap {
	answers := scoring.AnswerMap{}
	if len(a.Answers) == 0 {
		return answers
	}
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return scoring.AnswerMap{}
	}
	return answers
}

// SetAnswers encodes the answer map into the JSONB column.
func (a *Attempt) SetAnswers(answers scoring.AnswerMap) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	a.Answers = datatypes.JSON(raw)
	return nil
}

// AttemptAudio is one recorded speaking answer, stored on disk and keyed by
// the speaking part it answers.
type AttemptAudio struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AttemptID uint   `json:"attempt_id" gorm:"not null;index:idx_attempt_audio_part,unique"`
	PartID    uint   `json:"part_id" gorm:"not null;index:idx_attempt_audio_part,unique"`
	FileKey   string `json:"file_key" gorm:"not null;size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempt Attempt `json:"-" gorm:"foreignKey:AttemptID"`
}

func (AttemptAudio) TableName() string {
	return "attempt_audio_files"
}
