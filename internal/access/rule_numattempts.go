package access

import (
	"fmt"

	"github.com/openquiz/quizgate/internal/model"
)

const RuleNumAttempts = "numattempts"

// numAttemptsRule blocks new attempts once the configured number of attempts
// has been used. Preview attempts never count against the limit.
type numAttemptsRule struct {
	baseRule
	allowed int
}

func newNumAttemptsRule(env Env) Rule {
	if env.Quiz.AttemptsAllowed <= 0 {
		return nil
	}
	return &numAttemptsRule{allowed: env.Quiz.AttemptsAllowed}
}

func (r *numAttemptsRule) Name() string { return RuleNumAttempts }

func (r *numAttemptsRule) Description() string {
	return fmt.Sprintf("Attempts allowed: %d", r.allowed)
}

func (r *numAttemptsRule) PreventNewAttempt(countSoFar int, _ *model.Attempt) []string {
	if countSoFar >= r.allowed {
		return []string{"No more attempts are allowed"}
	}
	return nil
}

func (r *numAttemptsRule) IsFinishedForGood(countSoFar int, _ *model.Attempt) bool {
	return countSoFar >= r.allowed
}
