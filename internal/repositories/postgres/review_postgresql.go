package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type ReviewPostgreSQL struct {
	db *gorm.DB
}

func NewReviewPostgreSQL(db *gorm.DB) repositories.ReviewRepository {
	return &ReviewPostgreSQL{db: db}
}

func (r ReviewPostgreSQL) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r ReviewPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r ReviewPostgreSQL) GetByAttemptAndMentor(ctx context.Context, attemptID uint, mentorID string) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ? AND mentor_id = ?", attemptID, mentorID).
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r ReviewPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Review, error) {
	var reviews []*models.Review
	if err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Preload("Mentor").
		Order("reviewed_at DESC").
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r ReviewPostgreSQL) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Save(review).Error
}
