package model

import (
	"time"

	"gorm.io/gorm"
)

// AttemptState is the lifecycle state of one attempt.
type AttemptState string

const (
	AttemptInProgress AttemptState = "inprogress"
	AttemptOverdue    AttemptState = "overdue"
	AttemptFinished   AttemptState = "finished"
	AttemptAbandoned  AttemptState = "abandoned"
)

// Terminal reports whether no further responses or transitions are accepted.
func (s AttemptState) Terminal() bool {
	return s == AttemptFinished || s == AttemptAbandoned
}

// Attempt is one learner's (or previewer's) instance of taking a quiz.
// TimeFinish is set iff the state is terminal; SumGrades is set only once the
// state is terminal. AttemptNumber is sequential and gap-free per (quiz, user)
// over non-preview attempts.
type Attempt struct {
	ID     uint `gorm:"primarykey" json:"id"`
	QuizID uint `gorm:"not null;index:idx_attempt_quiz_user;uniqueIndex:uidx_attempt_number" json:"quiz_id"`
	Quiz   Quiz `gorm:"foreignKey:QuizID" json:"-"`
	UserID uint `gorm:"not null;index:idx_attempt_quiz_user;uniqueIndex:uidx_attempt_number" json:"user_id"`

	// The partial unique index keeps non-preview numbering gap-free even when
	// two starts race; previews sit outside the sequence.
	AttemptNumber int          `gorm:"not null;uniqueIndex:uidx_attempt_number,where:preview = false" json:"attempt_number"`
	UsageRef      string       `gorm:"size:36;not null;uniqueIndex" json:"usage_ref"`
	State         AttemptState `gorm:"size:16;not null;default:'inprogress';index" json:"state"`
	Preview       bool         `gorm:"not null;default:false" json:"preview"`
	CurrentPage   int          `gorm:"not null;default:0" json:"current_page"`

	TimeStart           time.Time  `gorm:"not null" json:"time_start"`
	TimeFinish          *time.Time `json:"time_finish,omitempty"`
	TimeModified        time.Time  `gorm:"not null" json:"time_modified"`
	TimeModifiedOffline *time.Time `json:"time_modified_offline,omitempty"`
	// TimeCheckState is the next instant at which the sweep must re-evaluate
	// this attempt's time-based state. Nil means never.
	TimeCheckState *time.Time `gorm:"index" json:"time_check_state,omitempty"`

	SumGrades *float64 `json:"sum_grades,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
