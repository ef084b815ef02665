package access

import (
	"testing"
	"time"

	"github.com/openquiz/quizgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPreflightStore struct {
	passed map[uint]map[string]bool
}

func newMemPreflightStore() *memPreflightStore {
	return &memPreflightStore{passed: map[uint]map[string]bool{}}
}

func (s *memPreflightStore) Passed(attemptID uint, ruleName string) bool {
	return s.passed[attemptID][ruleName]
}

func (s *memPreflightStore) MarkPassed(attemptID uint, ruleName string) error {
	if s.passed[attemptID] == nil {
		s.passed[attemptID] = map[string]bool{}
	}
	s.passed[attemptID][ruleName] = true
	return nil
}

func managerAt(quiz model.Quiz, p Principal, now time.Time, store PreflightStore) *Manager {
	eff := ResolveEffective(quiz, nil, nil)
	return NewManager(Env{Quiz: quiz, Effective: eff, Principal: p, Now: now, Preflight: store})
}

func TestPreventAccess_AggregatesAllReasons(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	quiz := model.Quiz{
		TimeOpen:      &open,
		AllowedSubnet: "10.0.0.0/8",
	}
	// Before the quiz opens AND from a disallowed address: both reasons must
	// be reported, not just the first.
	mgr := managerAt(quiz, Principal{ClientIP: "192.168.1.5"}, open.Add(-time.Hour), nil)

	reasons := mgr.PreventAccess()
	require.Len(t, reasons, 2)
}

func TestPreventAccess_AllowedInsideWindowAndSubnet(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(2 * time.Hour)
	quiz := model.Quiz{
		TimeOpen:      &open,
		TimeClose:     &closeTime,
		AllowedSubnet: "10.0.0.0/8, 192.168.1.22",
	}

	mgr := managerAt(quiz, Principal{ClientIP: "10.1.2.3"}, open.Add(time.Minute), nil)
	assert.Empty(t, mgr.PreventAccess())

	mgr = managerAt(quiz, Principal{ClientIP: "192.168.1.22"}, open.Add(time.Minute), nil)
	assert.Empty(t, mgr.PreventAccess())
}

func TestEndTime_MinimumOfCloseAndTimeLimit(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(2 * time.Hour)
	quiz := model.Quiz{TimeOpen: &open, TimeClose: &closeTime, TimeLimitSec: 1800}

	mgr := managerAt(quiz, Principal{}, open, nil)

	// Early start: the time limit expires before the close date.
	attempt := model.Attempt{TimeStart: open}
	end, ok := mgr.EndTime(attempt)
	require.True(t, ok)
	assert.Equal(t, open.Add(30*time.Minute), end)

	// Late start: the close date caps the attempt.
	attempt = model.Attempt{TimeStart: closeTime.Add(-10 * time.Minute)}
	end, ok = mgr.EndTime(attempt)
	require.True(t, ok)
	assert.Equal(t, closeTime, end)
}

func TestEndTime_NoDeadlineWithoutCloseOrLimit(t *testing.T) {
	mgr := managerAt(model.Quiz{}, Principal{}, time.Now(), nil)
	_, ok := mgr.EndTime(model.Attempt{TimeStart: time.Now()})
	assert.False(t, ok)
}

func TestIgnoreTimeLimits_ExemptsTimeRulesOnly(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(time.Hour)
	quiz := model.Quiz{
		TimeOpen:     &open,
		TimeClose:    &closeTime,
		TimeLimitSec: 600,
		Password:     "secret",
	}

	p := Principal{IgnoreTimeLimits: true}
	mgr := managerAt(quiz, p, closeTime.Add(time.Hour), nil)

	// Past close, but the capability exempts the principal from the window.
	assert.Empty(t, mgr.PreventAccess())
	_, ok := mgr.EndTime(model.Attempt{TimeStart: open})
	assert.False(t, ok)

	// The password still applies.
	assert.True(t, mgr.IsPreflightRequired(nil))
}

func TestValidatePreflight_PasswordCodes(t *testing.T) {
	quiz := model.Quiz{Password: "secret"}
	mgr := managerAt(quiz, Principal{}, time.Now(), nil)

	errs := mgr.ValidatePreflight(PreflightData{}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, CodePasswordEmpty, errs[0].Code)

	errs = mgr.ValidatePreflight(PreflightData{Password: "nope"}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, CodePasswordWrong, errs[0].Code)

	assert.Empty(t, mgr.ValidatePreflight(PreflightData{Password: "secret"}, nil))
}

func TestPreflight_NotReRequiredOncePassed(t *testing.T) {
	quiz := model.Quiz{Password: "secret"}
	store := newMemPreflightStore()
	mgr := managerAt(quiz, Principal{}, time.Now(), store)

	attemptID := uint(42)
	require.True(t, mgr.IsPreflightRequired(&attemptID))
	require.NoError(t, mgr.NotifyPreflightPassed(attemptID))

	assert.False(t, mgr.IsPreflightRequired(&attemptID))
	// A different attempt still needs the check.
	other := uint(43)
	assert.True(t, mgr.IsPreflightRequired(&other))
}

func TestPreventNewAttempt_AttemptLimitAndDelay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quiz := model.Quiz{AttemptsAllowed: 2, DelayAttempt1Sec: 600}
	mgr := managerAt(quiz, Principal{}, now, nil)

	finished := now.Add(-time.Minute)
	last := &model.Attempt{State: model.AttemptFinished, TimeFinish: &finished}

	// One attempt used, ten-minute delay not yet elapsed.
	reasons := mgr.PreventNewAttempt(1, last)
	require.Len(t, reasons, 1)
	assert.False(t, mgr.IsFinished(1, last))

	// Delay elapsed.
	mgr = managerAt(quiz, Principal{}, now.Add(10*time.Minute), nil)
	assert.Empty(t, mgr.PreventNewAttempt(1, last))

	// Limit reached: blocked and finished for good.
	reasons = mgr.PreventNewAttempt(2, last)
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "No more attempts")
	assert.True(t, mgr.IsFinished(2, last))
}

func TestIsFinished_PastCloseDate(t *testing.T) {
	closeTime := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	quiz := model.Quiz{TimeClose: &closeTime}

	mgr := managerAt(quiz, Principal{}, closeTime.Add(time.Second), nil)
	assert.True(t, mgr.IsFinished(0, nil))

	mgr = managerAt(quiz, Principal{}, closeTime.Add(-time.Second), nil)
	assert.False(t, mgr.IsFinished(0, nil))
}

func TestRequiresSecureWindow(t *testing.T) {
	quiz := model.Quiz{BrowserSecurity: model.BrowserSecuritySecureWindow}
	mgr := managerAt(quiz, Principal{}, time.Now(), nil)
	assert.True(t, mgr.RequiresSecureWindow())

	mgr = managerAt(model.Quiz{BrowserSecurity: model.BrowserSecurityNone}, Principal{}, time.Now(), nil)
	assert.False(t, mgr.RequiresSecureWindow())
}

func TestDescriptions_OnlyActiveRules(t *testing.T) {
	quiz := model.Quiz{TimeLimitSec: 600, Password: "secret", AttemptsAllowed: 3}
	mgr := managerAt(quiz, Principal{}, time.Now(), nil)

	names := mgr.ActiveRuleNames()
	assert.ElementsMatch(t, []string{RuleTimeLimit, RulePassword, RuleNumAttempts}, names)
	assert.Len(t, mgr.Descriptions(), 3)
}
