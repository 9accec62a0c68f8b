package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleMentor  UserRole = "mentor"
	RoleAdmin   UserRole = "admin"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	Role     UserRole `json:"role" gorm:"not null;default:student;index" validate:"omitempty,user_role"`

	// Profile info
	AvatarURL   *string `json:"avatar_url" gorm:"size:500"`
	PhoneNumber *string `json:"phone_number" gorm:"size:20"`

	IsActive    bool       `json:"is_active" gorm:"default:true"`
	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// Group is a study group of students sharing a mentor.
type Group struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	MentorID *string `json:"mentor_id" gorm:"size:255;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Mentor   *User          `json:"mentor,omitempty" gorm:"foreignKey:MentorID"`
	Students []GroupStudent `json:"students,omitempty" gorm:"foreignKey:GroupID"`
}

func (Group) TableName() string {
	return "groups"
}

// GroupStudent links a student to their group. A student belongs to at most
// one group at a time.
type GroupStudent struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	GroupID   uint   `json:"group_id" gorm:"not null;index"`
	StudentID string `json:"student_id" gorm:"not null;size:255;uniqueIndex"`

	CreatedAt time.Time `json:"created_at"`

	// Relations
	Group   Group `json:"group" gorm:"foreignKey:GroupID"`
	Student User  `json:"student" gorm:"foreignKey:StudentID"`
}

func (GroupStudent) TableName() string {
	return "group_students"
}
