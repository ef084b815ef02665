package access

import (
	"fmt"
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

const RuleTimeLimit = "timelimit"

// timeLimitRule bounds the attempt end time at timeStart plus the effective
// time limit. Exempt for ignore-time-limits principals.
type timeLimitRule struct {
	baseRule
	limit time.Duration
}

func newTimeLimitRule(env Env) Rule {
	if env.Principal.IgnoreTimeLimits || env.Effective.TimeLimit <= 0 {
		return nil
	}
	return &timeLimitRule{limit: env.Effective.TimeLimit}
}

func (r *timeLimitRule) Name() string { return RuleTimeLimit }

func (r *timeLimitRule) Description() string {
	return fmt.Sprintf("Time limit: %s", r.limit)
}

func (r *timeLimitRule) EndTime(attempt model.Attempt) (time.Time, bool) {
	return attempt.TimeStart.Add(r.limit), true
}
