package commands

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/config"
)

func init() {
	command.Register(&command.Command{
		Name:        "selfmode",
		Aliases:     []string{"self"},
		Category:    "owner",
		Description: "Restrict the bot to owner commands only",
		Usage:       "selfmode <on|off>",
		OwnerOnly:   true,
		Execute:     runSelfMode,
	})
	command.Register(&command.Command{
		Name:        "setprefix",
		Category:    "owner",
		Description: "Change the command prefix",
		Usage:       "setprefix <prefix>",
		OwnerOnly:   true,
		Execute:     runSetPrefix,
	})
	command.Register(&command.Command{
		Name:        "anticall",
		Category:    "owner",
		Description: "Reject and block incoming callers",
		Usage:       "anticall <on|off>",
		OwnerOnly:   true,
		Execute: func(ctx context.Context, c *command.Context) error {
			return runConfigToggle(ctx, c, "anticall", func(cfg *config.Config, v bool) { cfg.AntiCall = v })
		},
	})
	command.Register(&command.Command{
		Name:        "autoread",
		Category:    "owner",
		Description: "Mark every incoming message as read",
		Usage:       "autoread <on|off>",
		OwnerOnly:   true,
		Execute: func(ctx context.Context, c *command.Context) error {
			return runConfigToggle(ctx, c, "autoread", func(cfg *config.Config, v bool) { cfg.AutoRead = v })
		},
	})
	command.Register(&command.Command{
		Name:        "autotyping",
		Category:    "owner",
		Description: "Show a typing indicator before replies",
		Usage:       "autotyping <on|off>",
		OwnerOnly:   true,
		Execute: func(ctx context.Context, c *command.Context) error {
			return runConfigToggle(ctx, c, "autotyping", func(cfg *config.Config, v bool) { cfg.AutoTyping = v })
		},
	})
	command.Register(&command.Command{
		Name:        "block",
		Category:    "owner",
		Description: "Block a user",
		Usage:       "block @user",
		OwnerOnly:   true,
		Execute:     runBlock,
	})
	command.Register(&command.Command{
		Name:        "unblock",
		Category:    "owner",
		Description: "Unblock a user",
		Usage:       "unblock @user",
		OwnerOnly:   true,
		Execute:     runUnblock,
	})
	command.Register(&command.Command{
		Name:        "broadcast",
		Aliases:     []string{"bc"},
		Category:    "owner",
		Description: "Send a message to every joined group",
		Usage:       "broadcast <message>",
		OwnerOnly:   true,
		Execute:     runBroadcast,
	})
	command.Register(&command.Command{
		Name:        "addmod",
		Category:    "owner",
		Description: "Add a bot moderator",
		Usage:       "addmod @user",
		OwnerOnly:   true,
		Execute:     runAddMod,
	})
	command.Register(&command.Command{
		Name:        "delmod",
		Category:    "owner",
		Description: "Remove a bot moderator",
		Usage:       "delmod @user",
		OwnerOnly:   true,
		Execute:     runDelMod,
	})
	command.Register(&command.Command{
		Name:        "mods",
		Aliases:     []string{"listmods"},
		Category:    "owner",
		Description: "List bot moderators",
		Usage:       "mods",
		Execute:     runMods,
	})
	command.Register(&command.Command{
		Name:        "reload",
		Category:    "owner",
		Description: "Re-read the config file from disk",
		Usage:       "reload",
		OwnerOnly:   true,
		Execute:     runReload,
	})
}

func parseOnOff(arg string) (bool, bool) {
	switch strings.ToLower(arg) {
	case "on":
		return true, true
	case "off":
		return false, true
	}
	return false, false
}

func runConfigToggle(ctx context.Context, c *command.Context, name string, set func(*config.Config, bool)) error {
	usage := "Usage: " + c.Services.Cfg.Get().Prefix + name + " <on|off>"
	if len(c.Args) == 0 {
		return c.Reply(ctx, usage)
	}
	enable, ok := parseOnOff(c.Args[0])
	if !ok {
		return c.Reply(ctx, usage)
	}

	if err := c.Services.Cfg.Update(func(cfg *config.Config) { set(cfg, enable) }); err != nil {
		return err
	}
	if enable {
		return c.Reply(ctx, "✅ "+name+" enabled")
	}
	return c.Reply(ctx, "❌ "+name+" disabled")
}

func runSelfMode(ctx context.Context, c *command.Context) error {
	return runConfigToggle(ctx, c, "selfmode", func(cfg *config.Config, v bool) { cfg.SelfMode = v })
}

func runSetPrefix(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		return c.Reply(ctx, "Usage: "+c.Services.Cfg.Get().Prefix+"setprefix <prefix>")
	}
	prefix := c.Args[0]
	if len(prefix) > 3 {
		return c.Reply(ctx, "❌ Prefix must be at most 3 characters!")
	}

	if err := c.Services.Cfg.Update(func(cfg *config.Config) { cfg.Prefix = prefix }); err != nil {
		return err
	}
	return c.Reply(ctx, "✅ Prefix changed to "+prefix)
}

func runBlock(ctx context.Context, c *command.Context) error {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		return c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}
	if err := c.Services.WA.BlockUser(ctx, targets[0]); err != nil {
		return err
	}
	return c.React(ctx, "🚫")
}

func runUnblock(ctx context.Context, c *command.Context) error {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		return c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}
	if err := c.Services.WA.UnblockUser(ctx, targets[0]); err != nil {
		return err
	}
	return c.React(ctx, "✅")
}

func runBroadcast(ctx context.Context, c *command.Context) error {
	text := strings.Join(c.Args, " ")
	if text == "" {
		return c.Reply(ctx, "Usage: "+c.Services.Cfg.Get().Prefix+"broadcast <message>")
	}

	groups, err := c.Services.WA.JoinedGroups(ctx)
	if err != nil {
		return err
	}

	// Sends ride the throttled queue so a large group list cannot trip the
	// transport rate limits.
	queued := 0
	for _, group := range groups {
		jid := group.JID
		if c.Services.Tasks.Submit("broadcast", func(tctx context.Context) error {
			_, err := c.Services.WA.SendText(tctx, jid, "📢 *Broadcast*\n\n"+text)
			return err
		}) {
			queued++
		}
	}
	return c.Reply(ctx, fmt.Sprintf("📢 Broadcast queued for %d groups", queued))
}

func modTarget(ctx context.Context, c *command.Context) (types.JID, bool) {
	targets := c.TargetUsers(ctx)
	if len(targets) == 0 {
		return types.EmptyJID, false
	}
	return c.Services.IDs.Normalize(ctx, targets[0]), true
}

func runAddMod(ctx context.Context, c *command.Context) error {
	target, ok := modTarget(ctx, c)
	if !ok {
		return c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}

	added, err := c.Services.DB.AddModerator(target.User)
	if err != nil {
		return err
	}
	if !added {
		return c.Reply(ctx, "🔰 Already a moderator!")
	}
	text := fmt.Sprintf("🔰 @%s is now a bot moderator", target.User)
	_, err = c.Services.WA.SendMentions(ctx, c.From, text, []types.JID{target})
	return err
}

func runDelMod(ctx context.Context, c *command.Context) error {
	target, ok := modTarget(ctx, c)
	if !ok {
		return c.Reply(ctx, "🎯 Mention a user, reply to their message, or pass their number!")
	}

	removed, err := c.Services.DB.RemoveModerator(target.User)
	if err != nil {
		return err
	}
	if !removed {
		return c.Reply(ctx, "❌ Not a moderator!")
	}
	text := fmt.Sprintf("🔰 @%s is no longer a bot moderator", target.User)
	_, err = c.Services.WA.SendMentions(ctx, c.From, text, []types.JID{target})
	return err
}

func runMods(ctx context.Context, c *command.Context) error {
	mods, err := c.Services.DB.Moderators()
	if err != nil {
		return err
	}
	if len(mods) == 0 {
		return c.Reply(ctx, "🔰 No moderators configured")
	}

	var b strings.Builder
	b.WriteString("🔰 *Bot moderators*\n")
	for _, number := range mods {
		fmt.Fprintf(&b, "• %s\n", number)
	}
	return c.Reply(ctx, strings.TrimSpace(b.String()))
}

func runReload(ctx context.Context, c *command.Context) error {
	if err := c.Services.Cfg.Reload(); err != nil {
		return err
	}
	return c.Reply(ctx, "♻️ Config reloaded")
}
