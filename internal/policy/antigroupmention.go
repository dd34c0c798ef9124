package policy

import (
	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

// Server-side protocol message type for a status mention of a group.
const statusMentionProtocolType = 25

// EvalAntiGroupMention flags "status mention of this group" message shapes:
// the status-mention protocol message and forwarded newsletter references.
// Plain text never matches.
func EvalAntiGroupMention(content *waE2E.Message, settings store.GroupSettings) Verdict {
	if !settings.Antigroupmention || content == nil {
		return noMatch
	}

	matched := content.GetProtocolMessage() != nil &&
		content.GetProtocolMessage().GetType() == waE2E.ProtocolMessage_Type(statusMentionProtocolType)

	if !matched {
		if info := whatsapp.ContextInfoOf(content); info != nil {
			matched = info.GetForwardedNewsletterMessageInfo() != nil
		}
	}

	if !matched {
		return noMatch
	}
	return Verdict{
		Matched: true,
		Kick:    settings.AntigroupmentionAction == store.ActionKick,
		Reason:  "group status mention detected",
	}
}

// EvalAntiall is the lockdown policy: when enabled, every message from a
// non-exempt sender is removed. No kick, delete only.
func EvalAntiall(settings store.GroupSettings) Verdict {
	if !settings.Antiall {
		return noMatch
	}
	return Verdict{Matched: true, Reason: "group lockdown active"}
}
