package dto

import "time"

type AttemptResponse struct {
	ID                  uint       `json:"id"`
	QuizID              uint       `json:"quiz_id"`
	UserID              uint       `json:"user_id"`
	AttemptNumber       int        `json:"attempt_number"`
	UsageRef            string     `json:"usage_ref"`
	State               string     `json:"state"`
	Preview             bool       `json:"preview"`
	CurrentPage         int        `json:"current_page"`
	TimeStart           time.Time  `json:"time_start"`
	TimeFinish          *time.Time `json:"time_finish,omitempty"`
	TimeModified        time.Time  `json:"time_modified"`
	TimeModifiedOffline *time.Time `json:"time_modified_offline,omitempty"`
	TimeCheckState      *time.Time `json:"time_check_state,omitempty"`
	SumGrades           *float64   `json:"sum_grades,omitempty"`
}

type SlotResponse struct {
	SlotNumber int     `json:"slot_number"`
	Page       int     `json:"page"`
	QuestionID uint    `json:"question_id"`
	MaxMark    float64 `json:"max_mark"`
	Real       bool    `json:"real"`
}

// AttemptPageResponse is an attempt plus the questions on the requested page.
type AttemptPageResponse struct {
	Attempt AttemptResponse `json:"attempt"`
	Page    int             `json:"page"`
	Slots   []SlotResponse  `json:"slots"`
}

type FinishAttemptResponse struct {
	State      string     `json:"state"`
	TimeFinish *time.Time `json:"time_finish,omitempty"`
	SumGrades  *float64   `json:"sum_grades,omitempty"`
}

// QuizAccessInfoResponse answers "may this principal attempt this quiz now,
// and under which rules".
type QuizAccessInfoResponse struct {
	CanAttempt           bool     `json:"can_attempt"`
	RuleDescriptions     []string `json:"rule_descriptions"`
	ActiveRuleNames      []string `json:"active_rule_names"`
	PreventAccessReasons []string `json:"prevent_access_reasons"`
	SecureWindowRequired bool     `json:"secure_window_required"`
}

// AttemptAccessInfoResponse answers attempt-scoped access questions.
type AttemptAccessInfoResponse struct {
	EndTime                  *time.Time `json:"end_time,omitempty"`
	IsFinished               bool       `json:"is_finished"`
	PreflightRequired        bool       `json:"preflight_required"`
	PreventNewAttemptReasons []string   `json:"prevent_new_attempt_reasons"`
}

type ErrorResponse struct {
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}
