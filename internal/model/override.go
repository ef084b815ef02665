package model

import (
	"time"

	"gorm.io/gorm"
)

// Override replaces selected quiz settings for one user or one group.
// Exactly one of UserID/GroupID is set. Nil fields leave the base value in
// force. Overrides are managed by administrators and consumed read-only by
// the deadline resolver.
type Override struct {
	ID      uint  `gorm:"primarykey" json:"id"`
	QuizID  uint  `gorm:"not null;index" json:"quiz_id"`
	UserID  *uint `gorm:"index" json:"user_id,omitempty"`
	GroupID *uint `gorm:"index" json:"group_id,omitempty"`

	TimeOpen     *time.Time `json:"time_open,omitempty"`
	TimeClose    *time.Time `json:"time_close,omitempty"`
	TimeLimitSec *int       `json:"time_limit_sec,omitempty"`
	Password     *string    `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// GroupMember records a user's membership of a group, used to select the
// group overrides applicable to a principal.
type GroupMember struct {
	ID      uint `gorm:"primarykey" json:"id"`
	GroupID uint `gorm:"not null;index:idx_group_member,unique" json:"group_id"`
	UserID  uint `gorm:"not null;index:idx_group_member,unique" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
}
