package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/scoring"
)

type SectionKind string

const (
	SectionReading   SectionKind = "reading"
	SectionListening SectionKind = "listening"
	SectionWriting   SectionKind = "writing"
	SectionSpeaking  SectionKind = "speaking"
)

// IsAutoScored reports whether attempts for this section kind are graded by
// the scoring engine instead of a mentor.
func (k SectionKind) IsAutoScored() bool {
	return k == SectionReading || k == SectionListening
}

type ExamStatus string

const (
	ExamDraft    ExamStatus = "draft"
	ExamActive   ExamStatus = "active"
	ExamArchived ExamStatus = "archived"
)

type Exam struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Title       string      `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string     `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	SectionKind SectionKind `json:"section_kind" gorm:"not null;index" validate:"required,section_kind"`
	Status      ExamStatus  `json:"status" gorm:"default:draft;index" validate:"omitempty,oneof=draft active archived"`
	Duration    int         `json:"duration" gorm:"not null;default:60" validate:"min=5,max=300"` // Minutes

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;size:255;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	ReadingPassages []ReadingPassage `json:"reading_passages,omitempty" gorm:"foreignKey:ExamID"`
	ListeningAudios []ListeningAudio `json:"listening_audios,omitempty" gorm:"foreignKey:ExamID"`
	WritingTasks    []WritingTask    `json:"writing_tasks,omitempty" gorm:"foreignKey:ExamID"`
	SpeakingParts   []SpeakingPart   `json:"speaking_parts,omitempty" gorm:"foreignKey:ExamID"`
	Creator         User             `json:"creator" gorm:"foreignKey:CreatedBy"`
}

func (Exam) TableName() string {
	return "exams"
}

// GradingUnits flattens the exam's nested question structure into its leaf
// grading units. Reading sections nest passages -> questions ->
// subquestions; listening sections nest audio tracks the same way. Order
// follows stored position but is irrelevant to scoring.
func (e *Exam) GradingUnits() []scoring.GradingUnit {
	var units []scoring.GradingUnit

	collect := func(questions []Question) {
		for _, q := range questions {
			for _, sub := range q.SubQuestions {
				units = append(units, scoring.GradingUnit{
					ID:            sub.ID,
					CorrectAnswer: sub.CorrectAnswer,
				})
			}
		}
	}

	for _, passage := range e.ReadingPassages {
		collect(passage.Questions)
	}
	for _, audio := range e.ListeningAudios {
		collect(audio.Questions)
	}

	return units
}

// ReadingPassage groups questions under one reading text.
type ReadingPassage struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ExamID   uint   `json:"exam_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"size:200"`
	Content  string `json:"content" gorm:"type:text;not null" validate:"required"`
	Position int    `json:"position" gorm:"not null;default:0"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:PassageID"`
}

func (ReadingPassage) TableName() string {
	return "reading_passages"
}

// ListeningAudio groups questions under one audio track.
type ListeningAudio struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ExamID   uint   `json:"exam_id" gorm:"not null;index"`
	Title    string `json:"title" gorm:"size:200"`
	AudioURL string `json:"audio_url" gorm:"size:500;not null" validate:"required"`
	Position int    `json:"position" gorm:"not null;default:0"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AudioID"`
}

func (ListeningAudio) TableName() string {
	return "listening_audios"
}

// Question is an instruction block holding one or more gradable
// subquestions. Exactly one of PassageID/AudioID is set depending on the
// section kind.
type Question struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	PassageID *uint  `json:"passage_id" gorm:"index"`
	AudioID   *uint  `json:"audio_id" gorm:"index"`
	Prompt    string `json:"prompt" gorm:"type:text;not null" validate:"required"`
	Position  int    `json:"position" gorm:"not null;default:0"`

	SubQuestions []SubQuestion `json:"subquestions,omitempty" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// SubQuestion is the leaf grading unit: a single multiple-choice item with
// a letter answer key.
type SubQuestion struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	QuestionID    uint    `json:"question_id" gorm:"not null;index"`
	Text          string  `json:"text" gorm:"type:text;not null" validate:"required"`
	Options       *string `json:"options" gorm:"type:text"`
	CorrectAnswer string  `json:"correct_answer" gorm:"size:50"`
	Position      int     `json:"position" gorm:"not null;default:0"`
}

func (SubQuestion) TableName() string {
	return "subquestions"
}

type WritingTaskType string

const (
	WritingTask1 WritingTaskType = "task_1"
	WritingTask2 WritingTaskType = "task_2"
)

type WritingTask struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	ExamID      uint            `json:"exam_id" gorm:"not null;index"`
	Title       string          `json:"title" gorm:"size:200;not null" validate:"required"`
	Description string          `json:"description" gorm:"type:text"`
	ImageURL    *string         `json:"image_url" gorm:"size:500"`
	TaskType    WritingTaskType `json:"task_type" gorm:"not null" validate:"required,oneof=task_1 task_2"`
	Position    int             `json:"position" gorm:"not null;default:0"`
}

func (WritingTask) TableName() string {
	return "writing_tasks"
}

// SpeakingPart is one prompt of a speaking section; the student records an
// audio answer per part.
type SpeakingPart struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	ExamID   uint   `json:"exam_id" gorm:"not null;index"`
	Prompt   string `json:"prompt" gorm:"type:text;not null" validate:"required"`
	Position int    `json:"position" gorm:"not null;default:0"`
}

func (SpeakingPart) TableName() string {
	return "speaking_parts"
}
