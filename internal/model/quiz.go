package model

import (
	"time"

	"gorm.io/gorm"
)

// Overdue handling modes: what happens to an attempt whose time expires
// while it is still open.
const (
	OverdueAutoSubmit  = "autosubmit"
	OverdueGracePeriod = "graceperiod"
	OverdueAutoAbandon = "autoabandon"
)

// Grading methods across a user's finished attempts.
const (
	GradeHighest = "highest"
	GradeAverage = "average"
	GradeFirst   = "first"
	GradeLast    = "last"
)

// Navigation methods within an attempt.
const (
	NavFree       = "free"
	NavSequential = "sequential"
)

// Browser security modes.
const (
	BrowserSecurityNone         = "none"
	BrowserSecuritySecureWindow = "securewindow"
)

type Quiz struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Title       string `gorm:"not null;uniqueIndex" json:"title"`
	Description string `json:"description,omitempty"`

	// Timing. Nil open/close means unbounded; TimeLimitSec zero means unlimited.
	TimeOpen        *time.Time `json:"time_open,omitempty"`
	TimeClose       *time.Time `json:"time_close,omitempty"`
	TimeLimitSec    int        `gorm:"not null;default:0" json:"time_limit_sec"`
	OverdueHandling string     `gorm:"size:16;not null;default:'autoabandon'" json:"overdue_handling"`
	GracePeriodSec  int        `gorm:"not null;default:0" json:"grace_period_sec"`

	// Attempt limits. Zero AttemptsAllowed means unlimited.
	AttemptsAllowed  int `gorm:"not null;default:0" json:"attempts_allowed"`
	DelayAttempt1Sec int `gorm:"not null;default:0" json:"delay_attempt1_sec"`
	DelayAttempt2Sec int `gorm:"not null;default:0" json:"delay_attempt2_sec"`

	// Access restrictions.
	Password        string `gorm:"size:255" json:"-"`
	AllowedSubnet   string `gorm:"size:255" json:"allowed_subnet,omitempty"`
	BrowserSecurity string `gorm:"size:32;not null;default:'none'" json:"browser_security"`

	// Grading scale: raw sum of marks out of SumGrades is rescaled to Grade.
	Grade         float64 `gorm:"not null;default:10" json:"grade"`
	SumGrades     float64 `gorm:"not null;default:0" json:"sum_grades"`
	GradeMethod   string  `gorm:"size:16;not null;default:'highest'" json:"grade_method"`
	DecimalPoints int     `gorm:"not null;default:2" json:"decimal_points"`

	NavMethod string `gorm:"size:16;not null;default:'free'" json:"nav_method"`

	Slots []Slot `gorm:"foreignKey:QuizID" json:"slots,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TimeLimit returns the configured time limit as a duration, zero if unlimited.
func (q Quiz) TimeLimit() time.Duration { return time.Duration(q.TimeLimitSec) * time.Second }

// GracePeriod returns the configured grace period as a duration.
func (q Quiz) GracePeriod() time.Duration { return time.Duration(q.GracePeriodSec) * time.Second }

// DelayForAttempt returns the enforced delay before starting attempt number n
// (1-based): DelayAttempt1 applies between attempts 1 and 2, DelayAttempt2
// between every later pair.
func (q Quiz) DelayForAttempt(n int) time.Duration {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return time.Duration(q.DelayAttempt1Sec) * time.Second
	default:
		return time.Duration(q.DelayAttempt2Sec) * time.Second
	}
}
