package access

import (
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

// Principal identifies who is asking for access, with everything the rules
// need to decide: group memberships for overrides, the client address for
// network restrictions, and capability flags.
type Principal struct {
	UserID           uint
	GroupIDs         []uint
	ClientIP         string
	IgnoreTimeLimits bool
	Preview          bool
}

// PreflightData is the extra data a caller may supply before starting or
// continuing an attempt.
type PreflightData struct {
	Password string `json:"password,omitempty"`
}

// CheckError is one preflight validation failure, with a stable code callers
// can match on and a message a UI can show verbatim.
type CheckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PreflightStore remembers which preflight checks an attempt has already
// passed, so the principal is not re-prompted on every request.
type PreflightStore interface {
	Passed(attemptID uint, ruleName string) bool
	MarkPassed(attemptID uint, ruleName string) error
}

// Env is everything a rule evaluation is bound to: one quiz, one principal,
// one instant. Rules are constructed fresh from an Env for every decision and
// hold no mutable state of their own.
type Env struct {
	Quiz      model.Quiz
	Effective EffectiveSettings
	Principal Principal
	Now       time.Time
	Preflight PreflightStore
}

// Rule is one pluggable unit of access policy. A rule may veto access, demand
// a preflight check, bound the attempt's end time, or block new attempts. A
// rule doing none of these merely describes a requirement the client must
// honour.
type Rule interface {
	// Name is the stable registry name of the rule.
	Name() string
	// Description summarises the restriction the rule currently imposes,
	// empty if the rule is inactive for this quiz.
	Description() string
	// PreventAccess returns every reason access is currently denied.
	PreventAccess() []string
	// IsPreflightRequired reports whether extra data must be supplied before
	// starting (nil attemptID) or continuing (non-nil) an attempt.
	IsPreflightRequired(attemptID *uint) bool
	// ValidatePreflight checks the supplied data; empty result means passed.
	ValidatePreflight(data PreflightData, attemptID *uint) []CheckError
	// NotifyPreflightPassed records a successful check for an attempt.
	NotifyPreflightPassed(attemptID uint) error
	// EndTime returns the latest instant this rule still permits continuing
	// the attempt; ok=false if the rule imposes no deadline.
	EndTime(attempt model.Attempt) (t time.Time, ok bool)
	// PreventNewAttempt returns every reason a new attempt may not be
	// started, given the number of prior non-preview attempts and the most
	// recent one (nil if none).
	PreventNewAttempt(countSoFar int, last *model.Attempt) []string
	// IsFinishedForGood reports whether the principal can never attempt again.
	IsFinishedForGood(countSoFar int, last *model.Attempt) bool
}

// baseRule provides no-op defaults so concrete rules only implement the
// behaviours they actually have.
type baseRule struct{}

func (baseRule) Description() string                                 { return "" }
func (baseRule) PreventAccess() []string                             { return nil }
func (baseRule) IsPreflightRequired(*uint) bool                      { return false }
func (baseRule) ValidatePreflight(PreflightData, *uint) []CheckError { return nil }
func (baseRule) NotifyPreflightPassed(uint) error                    { return nil }
func (baseRule) EndTime(model.Attempt) (time.Time, bool)             { return time.Time{}, false }
func (baseRule) PreventNewAttempt(int, *model.Attempt) []string      { return nil }
func (baseRule) IsFinishedForGood(int, *model.Attempt) bool          { return false }
