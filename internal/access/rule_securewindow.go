package access

import "github.com/openquiz/quizgate/internal/model"

const RuleSecureWindow = "securewindow"

// secureWindowRule never gates access. It only flags that the client must
// render the attempt inside a restricted popup window, showing that rules
// may decorate a requirement without vetoing anything.
type secureWindowRule struct {
	baseRule
}

// PopupRequirer is the optional interface a rule implements when it needs
// the client to render the attempt in a restricted popup.
type PopupRequirer interface {
	RequiresPopup() bool
}

func newSecureWindowRule(env Env) Rule {
	if env.Quiz.BrowserSecurity != model.BrowserSecuritySecureWindow {
		return nil
	}
	return &secureWindowRule{}
}

func (r *secureWindowRule) Name() string { return RuleSecureWindow }

func (r *secureWindowRule) Description() string {
	return "This quiz will only open in a secure full-screen popup window"
}

func (r *secureWindowRule) RequiresPopup() bool { return true }
