package access

import (
	"fmt"
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

const RuleOpenClose = "openclosedate"

// openCloseRule gates access to the window between the effective open and
// close times and bounds the attempt end time at the close time. A principal
// with the ignore-time-limits capability is exempt from this rule (and only
// from the time-based rules; password and subnet still apply).
type openCloseRule struct {
	baseRule
	eff EffectiveSettings
	now time.Time
}

func newOpenCloseRule(env Env) Rule {
	if env.Principal.IgnoreTimeLimits {
		return nil
	}
	if env.Effective.TimeOpen.IsZero() && env.Effective.TimeClose.IsZero() {
		return nil
	}
	return &openCloseRule{eff: env.Effective, now: env.Now}
}

func (r *openCloseRule) Name() string { return RuleOpenClose }

func (r *openCloseRule) Description() string {
	switch {
	case !r.eff.TimeOpen.IsZero() && !r.eff.TimeClose.IsZero():
		return fmt.Sprintf("This quiz is open from %s to %s",
			r.eff.TimeOpen.Format(time.RFC1123), r.eff.TimeClose.Format(time.RFC1123))
	case !r.eff.TimeOpen.IsZero():
		return fmt.Sprintf("This quiz opens at %s", r.eff.TimeOpen.Format(time.RFC1123))
	default:
		return fmt.Sprintf("This quiz closes at %s", r.eff.TimeClose.Format(time.RFC1123))
	}
}

func (r *openCloseRule) PreventAccess() []string {
	if !r.eff.TimeOpen.IsZero() && r.now.Before(r.eff.TimeOpen) {
		return []string{fmt.Sprintf("The quiz will not be available until %s", r.eff.TimeOpen.Format(time.RFC1123))}
	}
	if !r.eff.TimeClose.IsZero() && r.now.After(r.eff.TimeClose) {
		return []string{"This quiz closed on " + r.eff.TimeClose.Format(time.RFC1123)}
	}
	return nil
}

func (r *openCloseRule) EndTime(model.Attempt) (time.Time, bool) {
	if r.eff.TimeClose.IsZero() {
		return time.Time{}, false
	}
	return r.eff.TimeClose, true
}

func (r *openCloseRule) IsFinishedForGood(int, *model.Attempt) bool {
	return !r.eff.TimeClose.IsZero() && r.now.After(r.eff.TimeClose)
}
