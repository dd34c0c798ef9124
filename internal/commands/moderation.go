package commands

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

func init() {
	command.Register(&command.Command{
		Name:           "kick",
		Aliases:        []string{"remove"},
		Category:       "moderation",
		Description:    "Remove the mentioned or quoted user from the group",
		Usage:          "kick @user",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runKick,
	})
	command.Register(&command.Command{
		Name:           "promote",
		Category:       "moderation",
		Description:    "Grant admin to the mentioned or quoted user",
		Usage:          "promote @user",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runPromote,
	})
	command.Register(&command.Command{
		Name:           "demote",
		Category:       "moderation",
		Description:    "Revoke admin from the mentioned or quoted user",
		Usage:          "demote @user",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runDemote,
	})
	command.Register(&command.Command{
		Name:        "warn",
		Category:    "moderation",
		Description: "Warn a user; enough warnings lead to removal",
		Usage:       "warn @user [reason]",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runWarn,
	})
	command.Register(&command.Command{
		Name:        "warnings",
		Category:    "moderation",
		Description: "Show a user's warnings",
		Usage:       "warnings @user",
		GroupOnly:   true,
		Execute:     runWarnings,
	})
	command.Register(&command.Command{
		Name:        "resetwarn",
		Aliases:     []string{"delwarn"},
		Category:    "moderation",
		Description: "Clear a user's warnings",
		Usage:       "resetwarn @user",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runResetWarn,
	})
	command.Register(&command.Command{
		Name:           "del",
		Aliases:        []string{"delete"},
		Category:       "moderation",
		Description:    "Delete the quoted message",
		Usage:          "del (reply to a message)",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runDel,
	})
	command.Register(&command.Command{
		Name:           "mute",
		Category:       "moderation",
		Description:    "Restrict the group to admin messages",
		Usage:          "mute",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runMute,
	})
	command.Register(&command.Command{
		Name:           "unmute",
		Category:       "moderation",
		Description:    "Reopen the group to all members",
		Usage:          "unmute",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runUnmute,
	})
}

// requireTargets resolves the users a command acts on and filters out the bot
// itself and the configured owners.
func requireTargets(ctx context.Context, c *command.Context) ([]types.JID, error) {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		return nil, c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}

	selfUsers := make(map[string]struct{}, 2)
	for _, self := range []types.JID{c.Services.WA.SelfID(), c.Services.WA.SelfLID()} {
		if self.User != "" {
			selfUsers[c.Services.IDs.Normalize(ctx, self).User] = struct{}{}
		}
	}

	out := make([]types.JID, 0, len(targets))
	for _, target := range targets {
		if _, isSelf := selfUsers[target.User]; isSelf {
			continue
		}
		if c.Services.Perms.IsOwner(ctx, target) {
			continue
		}
		out = append(out, target)
	}
	if len(out) == 0 {
		return nil, c.Reply(ctx, "🚫 I won't act on myself or the bot owner!")
	}
	return out, nil
}

func runKick(ctx context.Context, c *command.Context) error {
	targets, err := requireTargets(ctx, c)
	if err != nil || targets == nil {
		return err
	}
	if err := c.Services.WA.RemoveParticipants(ctx, c.From, targets); err != nil {
		if whatsapp.IsForbiddenError(err) {
			return c.Reply(ctx, c.Services.Cfg.Get().Messages.BotAdminNeeded)
		}
		return err
	}
	return c.React(ctx, "👢")
}

func runPromote(ctx context.Context, c *command.Context) error {
	targets, err := requireTargets(ctx, c)
	if err != nil || targets == nil {
		return err
	}
	if err := c.Services.WA.PromoteParticipants(ctx, c.From, targets); err != nil {
		return err
	}
	c.Services.Groups.Invalidate(c.From)
	return c.React(ctx, "👑")
}

func runDemote(ctx context.Context, c *command.Context) error {
	targets, err := requireTargets(ctx, c)
	if err != nil || targets == nil {
		return err
	}
	if err := c.Services.WA.DemoteParticipants(ctx, c.From, targets); err != nil {
		return err
	}
	c.Services.Groups.Invalidate(c.From)
	return c.React(ctx, "⬇️")
}

func runWarn(ctx context.Context, c *command.Context) error {
	targets, err := requireTargets(ctx, c)
	if err != nil || targets == nil {
		return err
	}
	target := targets[0]

	reason := "no reason given"
	if rest := warnReason(c); rest != "" {
		reason = rest
	}

	record, err := c.Services.DB.AddWarning(c.From.String(), target.User, reason)
	if err != nil {
		return err
	}

	cfg := c.Services.Cfg.Get()
	if record.Count < cfg.MaxWarnings {
		text := fmt.Sprintf("⚠️ @%s warned (%d/%d)\nReason: %s", target.User, record.Count, cfg.MaxWarnings, reason)
		_, err := c.Services.WA.SendMentions(ctx, c.From, text, []types.JID{target})
		return err
	}

	text := fmt.Sprintf("🚫 @%s reached %d warnings and will be removed!", target.User, cfg.MaxWarnings)
	if _, err := c.Services.WA.SendMentions(ctx, c.From, text, []types.JID{target}); err != nil {
		return err
	}

	if !c.Services.Perms.IsBotAdmin(ctx, c.From, nil) {
		return c.Reply(ctx, cfg.Messages.BotAdminNeeded)
	}
	if err := c.Services.WA.RemoveParticipants(ctx, c.From, []types.JID{target}); err != nil {
		// Warnings stay on record when the removal fails.
		return err
	}
	return c.Services.DB.ClearWarnings(c.From.String(), target.User)
}

// warnReason is everything after the first mention-free argument split.
func warnReason(c *command.Context) string {
	rest := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if strings.HasPrefix(arg, "@") || isBareNumber(arg) {
			continue
		}
		rest = append(rest, arg)
	}
	return strings.Join(rest, " ")
}

func isBareNumber(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func runWarnings(ctx context.Context, c *command.Context) error {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		targets = []types.JID{c.Sender}
	}
	target := c.Services.IDs.Normalize(ctx, targets[0])

	record, err := c.Services.DB.Warnings(c.From.String(), target.User)
	if err != nil {
		return err
	}

	cfg := c.Services.Cfg.Get()
	if record.Count == 0 {
		return c.Reply(ctx, "✨ No warnings on record!")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ @%s has %d/%d warnings:\n", target.User, record.Count, cfg.MaxWarnings)
	for i, w := range record.Warnings {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, w.Reason, w.Time.Format("2006-01-02"))
	}
	_, err = c.Services.WA.SendMentions(ctx, c.From, strings.TrimSpace(b.String()), []types.JID{target})
	return err
}

func runResetWarn(ctx context.Context, c *command.Context) error {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		return c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}
	target := c.Services.IDs.Normalize(ctx, targets[0])

	if err := c.Services.DB.ClearWarnings(c.From.String(), target.User); err != nil {
		return err
	}
	return c.React(ctx, "✨")
}

func runDel(ctx context.Context, c *command.Context) error {
	info := whatsapp.ContextInfoOf(c.Content)
	if info == nil || info.GetStanzaID() == "" {
		return c.Reply(ctx, "💬 Reply to the message you want deleted!")
	}

	sender := c.Services.IDs.NormalizeString(ctx, info.GetParticipant())
	if err := c.Services.WA.Revoke(ctx, c.From, sender, info.GetStanzaID()); err != nil {
		return err
	}
	return c.React(ctx, "🗑️")
}

func runMute(ctx context.Context, c *command.Context) error {
	if err := c.Services.WA.SetAnnounce(ctx, c.From, true); err != nil {
		return err
	}
	c.Services.Groups.Invalidate(c.From)
	return c.Reply(ctx, "🔇 Group muted: only admins can send messages")
}

func runUnmute(ctx context.Context, c *command.Context) error {
	if err := c.Services.WA.SetAnnounce(ctx, c.From, false); err != nil {
		return err
	}
	c.Services.Groups.Invalidate(c.From)
	return c.Reply(ctx, "🔊 Group unmuted: everyone can send messages")
}
