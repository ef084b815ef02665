package model

import "time"

// Capability names granted per user, optionally scoped to one quiz.
const (
	CapIgnoreTimeLimits = "quiz:ignoretimelimits"
	CapPreview          = "quiz:preview"
)

// Capability grants a named permission to a user. A nil QuizID grants it for
// every quiz.
type Capability struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	UserID uint   `gorm:"not null;index" json:"user_id"`
	QuizID *uint  `gorm:"index" json:"quiz_id,omitempty"`
	Name   string `gorm:"size:64;not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
}
