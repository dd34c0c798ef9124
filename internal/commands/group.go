package commands

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/store"
)

func init() {
	command.Register(&command.Command{
		Name:        "tagall",
		Aliases:     []string{"everyone"},
		Category:    "group",
		Description: "Mention every participant",
		Usage:       "tagall [message]",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runTagall,
	})
	command.Register(&command.Command{
		Name:        "hidetag",
		Aliases:     []string{"ht"},
		Category:    "group",
		Description: "Send a message that notifies everyone without visible tags",
		Usage:       "hidetag <message>",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runHidetag,
	})
	command.Register(&command.Command{
		Name:           "link",
		Aliases:        []string{"grouplink"},
		Category:       "group",
		Description:    "Show the group invite link",
		Usage:          "link [revoke]",
		GroupOnly:      true,
		AdminOnly:      true,
		BotAdminNeeded: true,
		Execute:        runLink,
	})
	command.Register(&command.Command{
		Name:        "welcome",
		Category:    "group",
		Description: "Toggle or set the welcome message",
		Usage:       "welcome <on|off|set <text>>",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute: func(ctx context.Context, c *command.Context) error {
			return runRosterNotice(ctx, c, "welcome")
		},
	})
	command.Register(&command.Command{
		Name:        "goodbye",
		Category:    "group",
		Description: "Toggle or set the goodbye message",
		Usage:       "goodbye <on|off|set <text>>",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute: func(ctx context.Context, c *command.Context) error {
			return runRosterNotice(ctx, c, "goodbye")
		},
	})
	command.Register(&command.Command{
		Name:        "autosticker",
		Category:    "group",
		Description: "Toggle automatic sticker conversion for media",
		Usage:       "autosticker <on|off>",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runAutosticker,
	})
}

// roster returns the live participant list; tag commands must address the
// current membership, not a cached roster.
func roster(ctx context.Context, c *command.Context) ([]types.GroupParticipant, error) {
	meta := c.Services.Groups.Live(ctx, c.From)
	if meta == nil {
		return nil, fmt.Errorf("group metadata unavailable for %s", c.From)
	}
	return meta.Participants, nil
}

func runTagall(ctx context.Context, c *command.Context) error {
	participants, err := roster(ctx, c)
	if err != nil {
		return err
	}

	header := strings.Join(c.Args, " ")
	if header == "" {
		header = "📢 Attention everyone!"
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	mentions := make([]types.JID, 0, len(participants))
	for _, p := range participants {
		target := c.Services.IDs.Normalize(ctx, p.JID)
		if target.User == "" {
			continue
		}
		fmt.Fprintf(&b, "• @%s\n", target.User)
		mentions = append(mentions, target)
	}

	_, err = c.Services.WA.SendMentions(ctx, c.From, strings.TrimSpace(b.String()), mentions)
	return err
}

func runHidetag(ctx context.Context, c *command.Context) error {
	participants, err := roster(ctx, c)
	if err != nil {
		return err
	}

	text := strings.Join(c.Args, " ")
	if text == "" {
		text = "📢"
	}

	mentions := make([]types.JID, 0, len(participants))
	for _, p := range participants {
		if target := c.Services.IDs.Normalize(ctx, p.JID); target.User != "" {
			mentions = append(mentions, target)
		}
	}

	_, err = c.Services.WA.SendMentions(ctx, c.From, text, mentions)
	return err
}

func runLink(ctx context.Context, c *command.Context) error {
	reset := len(c.Args) > 0 && strings.EqualFold(c.Args[0], "revoke")
	link, err := c.Services.WA.InviteLink(ctx, c.From, reset)
	if err != nil {
		return err
	}
	if reset {
		return c.Reply(ctx, "🔗 Invite link revoked, new link:\n"+link)
	}
	return c.Reply(ctx, "🔗 "+link)
}

func runRosterNotice(ctx context.Context, c *command.Context, which string) error {
	usage := fmt.Sprintf("Usage: %s%s <on|off|set <text>>", c.Services.Cfg.Get().Prefix, which)
	if len(c.Args) == 0 {
		return c.Reply(ctx, usage)
	}

	mutate := func(s *store.GroupSettings) {}
	switch strings.ToLower(c.Args[0]) {
	case "on":
		mutate = func(s *store.GroupSettings) {
			if which == "welcome" {
				s.Welcome = true
			} else {
				s.Goodbye = true
			}
		}
	case "off":
		mutate = func(s *store.GroupSettings) {
			if which == "welcome" {
				s.Welcome = false
			} else {
				s.Goodbye = false
			}
		}
	case "set":
		if len(c.Args) < 2 {
			return c.Reply(ctx, usage)
		}
		text := strings.Join(c.Args[1:], " ")
		mutate = func(s *store.GroupSettings) {
			if which == "welcome" {
				s.Welcome = true
				s.WelcomeMessage = text
			} else {
				s.Goodbye = true
				s.GoodbyeMessage = text
			}
		}
	default:
		return c.Reply(ctx, usage)
	}

	updated, err := c.Services.DB.UpdateGroupSettings(c.From.String(), mutate)
	if err != nil {
		return err
	}

	enabled, message := updated.Welcome, updated.WelcomeMessage
	if which == "goodbye" {
		enabled, message = updated.Goodbye, updated.GoodbyeMessage
	}
	if !enabled {
		return c.Reply(ctx, fmt.Sprintf("❌ %s message disabled", which))
	}
	return c.Reply(ctx, fmt.Sprintf("✅ %s message enabled:\n%s", which, message))
}

func runAutosticker(ctx context.Context, c *command.Context) error {
	usage := "Usage: " + c.Services.Cfg.Get().Prefix + "autosticker <on|off>"
	if len(c.Args) == 0 {
		return c.Reply(ctx, usage)
	}

	var enable bool
	switch strings.ToLower(c.Args[0]) {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return c.Reply(ctx, usage)
	}

	if _, err := c.Services.DB.UpdateGroupSettings(c.From.String(), func(s *store.GroupSettings) {
		s.Autosticker = enable
	}); err != nil {
		return err
	}

	if enable {
		return c.Reply(ctx, "🧩 Auto sticker enabled")
	}
	return c.Reply(ctx, "🧩 Auto sticker disabled")
}
