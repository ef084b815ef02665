package model

import "time"

// QuizGrade is the final grade one user currently holds for one quiz,
// recomputed whenever one of their attempts reaches a terminal state.
type QuizGrade struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	QuizID       uint      `gorm:"not null;index:idx_quiz_grade,unique" json:"quiz_id"`
	UserID       uint      `gorm:"not null;index:idx_quiz_grade,unique" json:"user_id"`
	Grade        float64   `gorm:"not null" json:"grade"`
	TimeModified time.Time `gorm:"not null" json:"time_modified"`
}

// PreflightPass records that a preflight check (named by rule) has been
// passed for one attempt, so the principal is not re-prompted when
// continuing it.
type PreflightPass struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	AttemptID uint      `gorm:"not null;index:idx_preflight_pass,unique" json:"attempt_id"`
	RuleName  string    `gorm:"size:32;not null;index:idx_preflight_pass,unique" json:"rule_name"`
	CreatedAt time.Time `json:"created_at"`
}
