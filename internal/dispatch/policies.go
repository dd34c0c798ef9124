package dispatch

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nattydev/whatsguard/internal/policy"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/pkg/log"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

// evalPolicies runs the inline protection rules in precedence order. The
// evaluators are pure; the exemption check runs only after a rule matches,
// against live group metadata, so a just-promoted admin is never punished.
func (d *Dispatcher) evalPolicies(ctx context.Context, msg *events.Message, content *waE2E.Message, body string, settings store.GroupSettings, meta *types.GroupInfo) (policy.Verdict, string) {
	if msg.Info.IsFromMe {
		return policy.Verdict{}, ""
	}
	sender := msg.Info.Sender

	if v := policy.EvalAntiGroupMention(content, settings); v.Matched {
		if d.isExempt(ctx, sender, msg.Info.Chat) {
			return policy.Verdict{}, ""
		}
		return v, "🚫 @user, status mentions of this group are not allowed!"
	}

	if v := policy.EvalAntiall(settings); v.Matched {
		if d.isExempt(ctx, sender, msg.Info.Chat) {
			return policy.Verdict{}, ""
		}
		return v, ""
	}

	// The mass-mention threshold is participant-relative, so the rule needs
	// the roster. Without metadata the check is skipped, not run at the floor.
	if meta != nil {
		if v := policy.EvalAntitag(body, whatsapp.MentionedJIDs(content), len(meta.Participants), settings); v.Matched {
			if d.isExempt(ctx, sender, msg.Info.Chat) {
				return policy.Verdict{}, ""
			}
			return v, "🏷️ @user, mass mentions are not allowed here!"
		}
	}

	return policy.Verdict{}, ""
}

// isExempt reports whether the sender outranks the protection rules: owners
// always, group admins per live metadata.
func (d *Dispatcher) isExempt(ctx context.Context, sender, group types.JID) bool {
	if d.svc.Perms.IsOwner(ctx, sender) {
		return true
	}
	return d.svc.Perms.IsAdmin(ctx, sender, group, nil)
}

// enforce deletes the offending message, kicks when the rule says so and the
// bot has the authority, and posts the notice. Every step is best effort: a
// failed delete still attempts the kick and the notice.
func (d *Dispatcher) enforce(ctx context.Context, msg *events.Message, sender types.JID, v policy.Verdict, notice string) {
	chat := msg.Info.Chat

	if err := d.svc.WA.Revoke(ctx, chat, msg.Info.Sender, msg.Info.ID); err != nil {
		log.Print(logrus.Fields{"reason": v.Reason}).WithError(err).Warn("Failed to delete offending message")
	}

	if v.Kick && d.svc.Perms.IsBotAdmin(ctx, chat, nil) {
		target := d.svc.IDs.Normalize(ctx, sender)
		if err := d.svc.WA.RemoveParticipants(ctx, chat, []types.JID{target}); err != nil {
			log.Print(logrus.Fields{"reason": v.Reason}).WithError(err).Warn("Failed to remove offending participant")
		}
	}

	if notice != "" {
		target := d.svc.IDs.Normalize(ctx, sender)
		text := strings.ReplaceAll(notice, "@user", "@"+target.User)
		if _, err := d.svc.WA.SendMentions(ctx, chat, text, []types.JID{target}); err != nil {
			log.Print(logrus.Fields{"reason": v.Reason}).WithError(err).Warn("Failed to send policy notice")
		}
	}
}

// checkAntilink is the deferred link rule, run off the task queue after the
// primary handling of the message finished.
func (d *Dispatcher) checkAntilink(ctx context.Context, msg *events.Message, sender types.JID, body string, settings store.GroupSettings) {
	v := policy.EvalAntilink(body, settings)
	if !v.Matched {
		return
	}
	if d.isExempt(ctx, sender, msg.Info.Chat) {
		return
	}
	d.enforce(ctx, msg, sender, v, "🔗 @user, links are not allowed in this group!")
}

func (d *Dispatcher) handleCallOffer(evt *events.CallOffer) {
	policy.HandleCallOffer(context.Background(), d.svc.WA, evt, d.svc.Cfg.Get().AntiCall)
}
