package models

import (
	"time"
)

// Review is a mentor's manual assessment of a writing or speaking attempt.
// The four criteria follow the IELTS descriptors; the overall score is
// their arithmetic mean.
type Review struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	AttemptID uint   `json:"attempt_id" gorm:"not null;index:idx_reviews_attempt_mentor,unique"`
	MentorID  string `json:"mentor_id" gorm:"not null;size:255;index:idx_reviews_attempt_mentor,unique"`

	TaskAchievement   float64 `json:"task_achievement" validate:"band_score"`
	CoherenceCohesion float64 `json:"coherence_cohesion" validate:"band_score"`
	LexicalResource   float64 `json:"lexical_resource" validate:"band_score"`
	GrammaticalRange  float64 `json:"grammatical_range" validate:"band_score"`
	OverallScore      float64 `json:"overall_score"`

	Feedback string `json:"feedback" gorm:"type:text"`

	ReviewedAt time.Time `json:"reviewed_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Attempt Attempt `json:"-" gorm:"foreignKey:AttemptID"`
	Mentor  User    `json:"mentor" gorm:"foreignKey:MentorID"`
}

func (Review) TableName() string {
	return "reviews"
}

// CriteriaMean averages the four criterion bands. The result is not
// snapped to the 0.5 scale: four valid bands average onto 0.125 steps and
// the raw mean is what gets recorded, matching how paper-based marking
// sheets are totalled.
func (r *Review) CriteriaMean() float64 {
	return (r.TaskAchievement + r.CoherenceCohesion + r.LexicalResource + r.GrammaticalRange) / 4
}
