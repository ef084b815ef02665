package access

import (
	"sort"
	"time"

	"github.com/openquiz/quizgate/internal/model"
)

// EffectiveSettings is the deadline/restriction tuple that actually applies
// to one principal, after overrides have been resolved against the base quiz
// settings. Zero open/close times mean unbounded; zero TimeLimit means
// unlimited.
type EffectiveSettings struct {
	TimeOpen      time.Time
	TimeClose     time.Time
	TimeLimit     time.Duration
	Password      string
	AllowedSubnet string
}

// ResolveEffective combines base quiz settings with the overrides applicable
// to a principal.
//
// A user override has absolute priority: each of its non-nil fields replaces
// the base value and group overrides are ignored entirely. Otherwise group
// overrides are merged field by field, each field independently taking the
// value most favourable to the student: earliest open, latest close, longest
// time limit (with unlimited winning). Attempt counts and inter-attempt
// delays are never overridable and stay on the quiz itself.
func ResolveEffective(quiz model.Quiz, userOverride *model.Override, groupOverrides []model.Override) EffectiveSettings {
	eff := EffectiveSettings{
		TimeLimit:     quiz.TimeLimit(),
		Password:      quiz.Password,
		AllowedSubnet: quiz.AllowedSubnet,
	}
	if quiz.TimeOpen != nil {
		eff.TimeOpen = *quiz.TimeOpen
	}
	if quiz.TimeClose != nil {
		eff.TimeClose = *quiz.TimeClose
	}

	if userOverride != nil {
		applyOverride(&eff, *userOverride)
		return eff
	}

	if len(groupOverrides) == 0 {
		return eff
	}

	// Stable override-id order keeps ties (and the password pick) deterministic.
	ovs := make([]model.Override, len(groupOverrides))
	copy(ovs, groupOverrides)
	sort.SliceStable(ovs, func(i, j int) bool { return ovs[i].ID < ovs[j].ID })

	var (
		open, closeTime *time.Time
		limit           *time.Duration
		limitUnlimited  bool
		password        *string
	)
	for i := range ovs {
		ov := ovs[i]
		if ov.TimeOpen != nil && (open == nil || ov.TimeOpen.Before(*open)) {
			open = ov.TimeOpen
		}
		if ov.TimeClose != nil && (closeTime == nil || ov.TimeClose.After(*closeTime)) {
			closeTime = ov.TimeClose
		}
		if ov.TimeLimitSec != nil {
			if *ov.TimeLimitSec <= 0 {
				limitUnlimited = true
			} else {
				d := time.Duration(*ov.TimeLimitSec) * time.Second
				if limit == nil || d > *limit {
					limit = &d
				}
			}
		}
		if ov.Password != nil && password == nil {
			password = ov.Password
		}
	}
	if open != nil {
		eff.TimeOpen = *open
	}
	if closeTime != nil {
		eff.TimeClose = *closeTime
	}
	if limitUnlimited {
		eff.TimeLimit = 0
	} else if limit != nil {
		eff.TimeLimit = *limit
	}
	if password != nil {
		eff.Password = *password
	}
	return eff
}

func applyOverride(eff *EffectiveSettings, ov model.Override) {
	if ov.TimeOpen != nil {
		eff.TimeOpen = *ov.TimeOpen
	}
	if ov.TimeClose != nil {
		eff.TimeClose = *ov.TimeClose
	}
	if ov.TimeLimitSec != nil {
		eff.TimeLimit = time.Duration(*ov.TimeLimitSec) * time.Second
	}
	if ov.Password != nil {
		eff.Password = *ov.Password
	}
}

// TimeValue is one override's value for a single time field, carried with
// the override id for stable ordering.
type TimeValue struct {
	OverrideID uint
	Value      time.Time
}

// RankOpenTimes orders distinct open times for display, rank 1 being the
// earliest (the value that wins resolution). Equal timestamps share a rank.
func RankOpenTimes(values []TimeValue) map[uint]int {
	return rankTimes(values, func(a, b time.Time) bool { return a.Before(b) })
}

// RankCloseTimes orders distinct close times for display, rank 1 being the
// latest (the value that wins resolution). Equal timestamps share a rank.
func RankCloseTimes(values []TimeValue) map[uint]int {
	return rankTimes(values, func(a, b time.Time) bool { return a.After(b) })
}

func rankTimes(values []TimeValue, wins func(a, b time.Time) bool) map[uint]int {
	sorted := make([]TimeValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value.Equal(sorted[j].Value) {
			return sorted[i].OverrideID < sorted[j].OverrideID
		}
		return wins(sorted[i].Value, sorted[j].Value)
	})

	ranks := make(map[uint]int, len(sorted))
	rank := 0
	for i, v := range sorted {
		if i == 0 || !v.Value.Equal(sorted[i-1].Value) {
			rank++
		}
		ranks[v.OverrideID] = rank
	}
	return ranks
}
