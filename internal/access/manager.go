package access

import (
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

// Manager composes every active rule for one (quiz, principal, now) context
// and aggregates their verdicts. Managers are constructed fresh per
// evaluation and hold no mutable shared state.
type Manager struct {
	rules []Rule
	now   time.Time
}

// NewManager builds the rule set from the registry for the given Env.
func NewManager(env Env) *Manager {
	return &Manager{rules: buildRules(env), now: env.Now}
}

// Now is the evaluation instant the manager was bound to.
func (m *Manager) Now() time.Time { return m.now }

// PreventAccess concatenates every rule's denial reasons. It never
// short-circuits, so the caller can show everything that is wrong at once.
func (m *Manager) PreventAccess() []string {
	var reasons []string
	for _, r := range m.rules {
		reasons = append(reasons, r.PreventAccess()...)
	}
	return reasons
}

// IsPreflightRequired reports whether any rule demands a preflight check
// before starting (nil attemptID) or continuing (non-nil) an attempt.
func (m *Manager) IsPreflightRequired(attemptID *uint) bool {
	for _, r := range m.rules {
		if r.IsPreflightRequired(attemptID) {
			return true
		}
	}
	return false
}

// ValidatePreflight collects validation failures across every rule that
// requires a check. Any failure fails the overall check, but all failures
// are surfaced together.
func (m *Manager) ValidatePreflight(data PreflightData, attemptID *uint) []CheckError {
	var errs []CheckError
	for _, r := range m.rules {
		if r.IsPreflightRequired(attemptID) {
			errs = append(errs, r.ValidatePreflight(data, attemptID)...)
		}
	}
	return errs
}

// NotifyPreflightPassed records a successful overall check with every rule
// that had demanded one.
func (m *Manager) NotifyPreflightPassed(attemptID uint) error {
	for _, r := range m.rules {
		if r.IsPreflightRequired(&attemptID) {
			if err := r.NotifyPreflightPassed(attemptID); err != nil {
				return err
			}
		}
	}
	return nil
}

// EndTime returns the minimum of all rules' defined end times for the
// attempt; ok=false if no rule imposes a deadline.
func (m *Manager) EndTime(attempt model.Attempt) (time.Time, bool) {
	var (
		min   time.Time
		found bool
	)
	for _, r := range m.rules {
		t, ok := r.EndTime(attempt)
		if !ok {
			continue
		}
		if !found || t.Before(min) {
			min = t
			found = true
		}
	}
	return min, found
}

// PreventNewAttempt concatenates every rule's reasons a new attempt may not
// be started.
func (m *Manager) PreventNewAttempt(countSoFar int, last *model.Attempt) []string {
	var reasons []string
	for _, r := range m.rules {
		reasons = append(reasons, r.PreventNewAttempt(countSoFar, last)...)
	}
	return reasons
}

// IsFinished reports whether the principal can never attempt again.
func (m *Manager) IsFinished(countSoFar int, last *model.Attempt) bool {
	for _, r := range m.rules {
		if r.IsFinishedForGood(countSoFar, last) {
			return true
		}
	}
	return false
}

// Descriptions returns every active rule's human-readable summary.
func (m *Manager) Descriptions() []string {
	var out []string
	for _, r := range m.rules {
		if d := r.Description(); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// ActiveRuleNames returns the names of rules currently imposing a restriction.
func (m *Manager) ActiveRuleNames() []string {
	var out []string
	for _, r := range m.rules {
		if r.Description() != "" {
			out = append(out, r.Name())
		}
	}
	return out
}

// RequiresSecureWindow reports whether any rule demands the attempt be
// rendered in a restricted popup window.
func (m *Manager) RequiresSecureWindow() bool {
	for _, r := range m.rules {
		if p, ok := r.(PopupRequirer); ok && p.RequiresPopup() {
			return true
		}
	}
	return false
}
