package access

import (
	"testing"
	"time"

	"github.com/openquiz/quizgate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }
func strPtr(s string) *string        { return &s }

func TestResolveEffective_NoOverrides(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(2 * time.Hour)
	quiz := model.Quiz{
		TimeOpen:     &open,
		TimeClose:    &closeTime,
		TimeLimitSec: 600,
		Password:     "secret",
	}

	eff := ResolveEffective(quiz, nil, nil)

	assert.Equal(t, open, eff.TimeOpen)
	assert.Equal(t, closeTime, eff.TimeClose)
	assert.Equal(t, 10*time.Minute, eff.TimeLimit)
	assert.Equal(t, "secret", eff.Password)
}

func TestResolveEffective_UserOverrideWinsWholly(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(2 * time.Hour)
	quiz := model.Quiz{TimeOpen: &open, TimeClose: &closeTime, TimeLimitSec: 600}

	userClose := closeTime.Add(24 * time.Hour)
	user := &model.Override{TimeClose: &userClose}
	// A group override that would be even more generous must be ignored once
	// a user override exists.
	groupClose := closeTime.Add(48 * time.Hour)
	groups := []model.Override{{ID: 1, TimeClose: &groupClose, TimeLimitSec: intPtr(0)}}

	eff := ResolveEffective(quiz, user, groups)

	assert.Equal(t, userClose, eff.TimeClose)
	// Fields the user override leaves nil keep the base values.
	assert.Equal(t, open, eff.TimeOpen)
	assert.Equal(t, 10*time.Minute, eff.TimeLimit)
}

func TestResolveEffective_GroupMergeIsPerFieldMostPermissive(t *testing.T) {
	open := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	closeTime := open.Add(time.Hour)
	quiz := model.Quiz{TimeOpen: &open, TimeClose: &closeTime, TimeLimitSec: 600}

	earlyOpen := open.Add(-time.Hour)
	lateClose := closeTime.Add(3 * time.Hour)
	groups := []model.Override{
		{ID: 1, TimeOpen: timePtr(earlyOpen), TimeLimitSec: intPtr(300)},
		{ID: 2, TimeClose: timePtr(lateClose), TimeLimitSec: intPtr(1200)},
	}

	eff := ResolveEffective(quiz, nil, groups)

	// Earliest open and latest close win, even though they come from
	// different overrides.
	assert.Equal(t, earlyOpen, eff.TimeOpen)
	assert.Equal(t, lateClose, eff.TimeClose)
	assert.Equal(t, 20*time.Minute, eff.TimeLimit)
}

func TestResolveEffective_UnlimitedTimeLimitWins(t *testing.T) {
	quiz := model.Quiz{TimeLimitSec: 600}
	groups := []model.Override{
		{ID: 1, TimeLimitSec: intPtr(7200)},
		{ID: 2, TimeLimitSec: intPtr(0)}, // unlimited
	}

	eff := ResolveEffective(quiz, nil, groups)
	assert.Equal(t, time.Duration(0), eff.TimeLimit)
}

func TestResolveEffective_GroupPasswordFirstByID(t *testing.T) {
	quiz := model.Quiz{Password: "base"}
	groups := []model.Override{
		{ID: 7, Password: strPtr("later")},
		{ID: 3, Password: strPtr("winner")},
	}

	eff := ResolveEffective(quiz, nil, groups)
	assert.Equal(t, "winner", eff.Password)
}

func TestRankOpenTimes_EarliestFirstTiesShareRank(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	values := []TimeValue{
		{OverrideID: 1, Value: base.Add(time.Hour)},
		{OverrideID: 2, Value: base},
		{OverrideID: 3, Value: base},
		{OverrideID: 4, Value: base.Add(2 * time.Hour)},
	}

	ranks := RankOpenTimes(values)
	require.Len(t, ranks, 4)

	assert.Equal(t, 1, ranks[2])
	assert.Equal(t, 1, ranks[3])
	assert.Equal(t, 2, ranks[1])
	assert.Equal(t, 3, ranks[4])
}

func TestRankCloseTimes_LatestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	values := []TimeValue{
		{OverrideID: 1, Value: base},
		{OverrideID: 2, Value: base.Add(time.Hour)},
	}

	ranks := RankCloseTimes(values)
	assert.Equal(t, 1, ranks[2])
	assert.Equal(t, 2, ranks[1])
}
