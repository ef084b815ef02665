package dto

import "time"

// SlotCreateDTO places one question on one page when creating a quiz.
type SlotCreateDTO struct {
	SlotNumber int     `json:"slot_number" binding:"required,min=1"`
	Page       int     `json:"page" binding:"min=0"`
	QuestionID uint    `json:"question_id" binding:"required"`
	MaxMark    float64 `json:"max_mark" binding:"gte=0"`
	Real       *bool   `json:"real"`
}

// QuizCreateDTO is for admins to create a quiz with its settings and slots.
type QuizCreateDTO struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`

	TimeOpen        *time.Time `json:"time_open"`
	TimeClose       *time.Time `json:"time_close"`
	TimeLimitSec    int        `json:"time_limit_sec" binding:"gte=0"`
	OverdueHandling string     `json:"overdue_handling" binding:"omitempty,oneof=autosubmit graceperiod autoabandon"`
	GracePeriodSec  int        `json:"grace_period_sec" binding:"gte=0"`

	AttemptsAllowed  int `json:"attempts_allowed" binding:"gte=0"`
	DelayAttempt1Sec int `json:"delay_attempt1_sec" binding:"gte=0"`
	DelayAttempt2Sec int `json:"delay_attempt2_sec" binding:"gte=0"`

	Password        string `json:"password"`
	AllowedSubnet   string `json:"allowed_subnet"`
	BrowserSecurity string `json:"browser_security" binding:"omitempty,oneof=none securewindow"`

	Grade         float64 `json:"grade" binding:"gte=0"`
	GradeMethod   string  `json:"grade_method" binding:"omitempty,oneof=highest average first last"`
	DecimalPoints int     `json:"decimal_points" binding:"gte=0,lte=7"`
	NavMethod     string  `json:"nav_method" binding:"omitempty,oneof=free sequential"`

	Slots []SlotCreateDTO `json:"slots" binding:"omitempty,dive"`
}

// OverrideCreateDTO creates or updates a per-user or per-group override.
// Exactly one of UserID/GroupID must be set; nil fields keep the base value.
type OverrideCreateDTO struct {
	UserID  *uint `json:"user_id"`
	GroupID *uint `json:"group_id"`

	TimeOpen     *time.Time `json:"time_open"`
	TimeClose    *time.Time `json:"time_close"`
	TimeLimitSec *int       `json:"time_limit_sec"`
	Password     *string    `json:"password"`
}

type QuizResponse struct {
	ID              uint           `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	TimeOpen        *time.Time     `json:"time_open,omitempty"`
	TimeClose       *time.Time     `json:"time_close,omitempty"`
	TimeLimitSec    int            `json:"time_limit_sec"`
	OverdueHandling string         `json:"overdue_handling"`
	GracePeriodSec  int            `json:"grace_period_sec"`
	AttemptsAllowed int            `json:"attempts_allowed"`
	Grade           float64        `json:"grade"`
	SumGrades       float64        `json:"sum_grades"`
	GradeMethod     string         `json:"grade_method"`
	NavMethod       string         `json:"nav_method"`
	BrowserSecurity string         `json:"browser_security"`
	Slots           []SlotResponse `json:"slots,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type OverrideResponse struct {
	ID           uint       `json:"id"`
	QuizID       uint       `json:"quiz_id"`
	UserID       *uint      `json:"user_id,omitempty"`
	GroupID      *uint      `json:"group_id,omitempty"`
	TimeOpen     *time.Time `json:"time_open,omitempty"`
	TimeClose    *time.Time `json:"time_close,omitempty"`
	TimeLimitSec *int       `json:"time_limit_sec,omitempty"`
}
