package policy

import (
	"regexp"

	"github.com/nattydev/whatsguard/internal/store"
)

// Matches schemed and bare domain-like substrings, including invite links
// without a protocol ("chat.whatsapp.com/xxx").
var linkPattern = regexp.MustCompile(`(https?://)?([a-zA-Z0-9][a-zA-Z0-9-]*\.)+[a-zA-Z]{2,}(/\S*)?`)

// EvalAntilink flags message text containing a link when the group has the
// feature enabled.
func EvalAntilink(text string, settings store.GroupSettings) Verdict {
	if !settings.Antilink || text == "" {
		return noMatch
	}
	if !linkPattern.MatchString(text) {
		return noMatch
	}
	return Verdict{
		Matched: true,
		Kick:    settings.AntilinkAction == store.ActionKick,
		Reason:  "link detected",
	}
}
