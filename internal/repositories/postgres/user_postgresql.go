package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u UserPostgreSQL) GetRole(ctx context.Context, id string) (models.UserRole, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Select("role").First(&user, "id = ?", id).Error; err != nil {
		return "", err
	}
	return user.Role, nil
}

// Upsert mirrors the identity provider's user record into the local table.
func (u UserPostgreSQL) Upsert(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "role", "updated_at"}),
		}).
		Create(user).Error
}

type GroupPostgreSQL struct {
	db *gorm.DB
}

func NewGroupPostgreSQL(db *gorm.DB) repositories.GroupRepository {
	return &GroupPostgreSQL{db: db}
}

// GetStudentGroup returns the student's group, or nil when the student is
// not assigned to one.
func (g GroupPostgreSQL) GetStudentGroup(ctx context.Context, studentID string) (*models.Group, error) {
	var membership models.GroupStudent
	if err := g.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Preload("Group").
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &membership.Group, nil
}
