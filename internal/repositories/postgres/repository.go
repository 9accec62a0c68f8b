package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/examforge/exam-service/internal/repositories"
)

// gormRepository wires the entity repositories to one *gorm.DB handle,
// which may be either the root connection or an open transaction.
type gormRepository struct {
	db *gorm.DB

	exam    repositories.ExamRepository
	attempt repositories.AttemptRepository
	review  repositories.ReviewRepository
	audio   repositories.AudioRepository
	user    repositories.UserRepository
	group   repositories.GroupRepository
}

func NewRepository(db *gorm.DB) repositories.TransactionRepository {
	return &gormRepository{
		db:      db,
		exam:    NewExamPostgreSQL(db),
		attempt: NewAttemptPostgreSQL(db),
		review:  NewReviewPostgreSQL(db),
		audio:   NewAudioPostgreSQL(db),
		user:    NewUserPostgreSQL(db),
		group:   NewGroupPostgreSQL(db),
	}
}

func (r *gormRepository) Exam() repositories.ExamRepository       { return r.exam }
func (r *gormRepository) Attempt() repositories.AttemptRepository { return r.attempt }
func (r *gormRepository) Review() repositories.ReviewRepository   { return r.review }
func (r *gormRepository) Audio() repositories.AudioRepository     { return r.audio }
func (r *gormRepository) User() repositories.UserRepository       { return r.user }
func (r *gormRepository) Group() repositories.GroupRepository     { return r.group }

func (r *gormRepository) Begin(ctx context.Context) (repositories.Repository, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return NewRepository(tx), nil
}

func (r *gormRepository) Commit(ctx context.Context) error {
	return r.db.Commit().Error
}

func (r *gormRepository) Rollback(ctx context.Context) error {
	return r.db.Rollback().Error
}
