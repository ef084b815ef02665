package model

import (
	"time"

	"gorm.io/gorm"
)

// Slot places one question on one page of a quiz. Slot numbers are 1-based
// and contiguous; pages are 0-based. A non-real slot (e.g. a description
// block) carries no marks and is skipped by grading.
type Slot struct {
	ID         uint    `gorm:"primarykey" json:"id"`
	QuizID     uint    `gorm:"not null;index:idx_slot_quiz,unique" json:"quiz_id"`
	SlotNumber int     `gorm:"not null;index:idx_slot_quiz,unique" json:"slot_number"`
	Page       int     `gorm:"not null;default:0" json:"page"`
	QuestionID uint    `gorm:"not null" json:"question_id"`
	MaxMark    float64 `gorm:"not null;default:1" json:"max_mark"`
	Real       bool    `gorm:"not null;default:true" json:"real"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
