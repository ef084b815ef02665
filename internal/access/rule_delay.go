package access

import (
	"fmt"
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

const RuleDelay = "delaybetweenattempts"

// delayRule enforces the configured wait between consecutive attempts:
// delay 1 between attempts 1 and 2, delay 2 between every later pair. The
// wait runs from when the previous attempt closed.
type delayRule struct {
	baseRule
	quiz model.Quiz
	now  time.Time
}

func newDelayRule(env Env) Rule {
	if env.Quiz.DelayAttempt1Sec <= 0 && env.Quiz.DelayAttempt2Sec <= 0 {
		return nil
	}
	return &delayRule{quiz: env.Quiz, now: env.Now}
}

func (r *delayRule) Name() string { return RuleDelay }

func (r *delayRule) Description() string {
	d1, d2 := r.quiz.DelayAttempt1Sec, r.quiz.DelayAttempt2Sec
	switch {
	case d1 > 0 && d2 > 0:
		return fmt.Sprintf("You must wait %s before your second attempt and %s before later attempts",
			time.Duration(d1)*time.Second, time.Duration(d2)*time.Second)
	case d1 > 0:
		return fmt.Sprintf("You must wait %s before your second attempt", time.Duration(d1)*time.Second)
	default:
		return fmt.Sprintf("You must wait %s between attempts", time.Duration(d2)*time.Second)
	}
}

func (r *delayRule) PreventNewAttempt(countSoFar int, last *model.Attempt) []string {
	if last == nil || last.TimeFinish == nil {
		return nil
	}
	delay := r.quiz.DelayForAttempt(countSoFar + 1)
	if delay <= 0 {
		return nil
	}
	readyAt := last.TimeFinish.Add(delay)
	if r.now.Before(readyAt) {
		return []string{fmt.Sprintf("You must wait before you may make another attempt; try again after %s",
			readyAt.Format(time.RFC1123))}
	}
	return nil
}
