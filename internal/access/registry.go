package access

import "sort"

// Factory builds one rule bound to an evaluation Env. A factory may return
// nil when the rule has nothing to say for this quiz at all.
type Factory func(env Env) Rule

var factories = map[string]Factory{}

// Register adds a rule factory under a unique name. The built-in rules
// register themselves from init; external packages may add more before the
// first manager is constructed.
func Register(name string, f Factory) {
	if _, dup := factories[name]; dup {
		panic("access: duplicate rule registration: " + name)
	}
	factories[name] = f
}

func init() {
	Register(RuleOpenClose, newOpenCloseRule)
	Register(RuleTimeLimit, newTimeLimitRule)
	Register(RulePassword, newPasswordRule)
	Register(RuleSubnet, newSubnetRule)
	Register(RuleNumAttempts, newNumAttemptsRule)
	Register(RuleDelay, newDelayRule)
	Register(RuleSecureWindow, newSecureWindowRule)
}

// buildRules instantiates every registered rule for one Env, in stable name
// order so aggregated message lists are deterministic.
func buildRules(env Env) []Rule {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		if r := factories[name](env); r != nil {
			rules = append(rules, r)
		}
	}
	return rules
}
