package access

import "crypto/subtle"

const RulePassword = "password"

// Stable codes for password preflight failures.
const (
	CodePasswordEmpty = "passwordempty"
	CodePasswordWrong = "passwordwrong"
)

// passwordRule demands the quiz's shared secret as a preflight check before
// an attempt may start or continue. A pass is recorded per attempt so the
// principal is not re-prompted while continuing the same attempt.
type passwordRule struct {
	baseRule
	password string
	store    PreflightStore
}

func newPasswordRule(env Env) Rule {
	if env.Effective.Password == "" {
		return nil
	}
	return &passwordRule{password: env.Effective.Password, store: env.Preflight}
}

func (r *passwordRule) Name() string { return RulePassword }

func (r *passwordRule) Description() string {
	return "To attempt this quiz you need to know the quiz password"
}

func (r *passwordRule) IsPreflightRequired(attemptID *uint) bool {
	if attemptID == nil || r.store == nil {
		return true
	}
	return !r.store.Passed(*attemptID, RulePassword)
}

func (r *passwordRule) ValidatePreflight(data PreflightData, attemptID *uint) []CheckError {
	if !r.IsPreflightRequired(attemptID) {
		return nil
	}
	if data.Password == "" {
		return []CheckError{{Code: CodePasswordEmpty, Message: "You must supply the quiz password"}}
	}
	if subtle.ConstantTimeCompare([]byte(data.Password), []byte(r.password)) != 1 {
		return []CheckError{{Code: CodePasswordWrong, Message: "The password entered was incorrect"}}
	}
	return nil
}

func (r *passwordRule) NotifyPreflightPassed(attemptID uint) error {
	if r.store == nil {
		return nil
	}
	return r.store.MarkPassed(attemptID, RulePassword)
}
