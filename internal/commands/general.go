package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

func init() {
	command.Register(&command.Command{
		Name:        "ping",
		Category:    "general",
		Description: "Show bot uptime",
		Usage:       "ping",
		Execute:     runPing,
	})
	command.Register(&command.Command{
		Name:        "menu",
		Aliases:     []string{"help"},
		Category:    "general",
		Description: "List available commands",
		Usage:       "menu",
		Execute:     runMenu,
	})
	command.Register(&command.Command{
		Name:        "stats",
		Category:    "general",
		Description: "Show group message statistics",
		Usage:       "stats",
		GroupOnly:   true,
		Execute:     runStats,
	})
	command.Register(&command.Command{
		Name:        "sticker",
		Aliases:     []string{"s"},
		Category:    "general",
		Description: "Convert the attached image or video to a sticker",
		Usage:       "sticker (with media)",
		Execute:     runSticker,
	})
}

func runPing(ctx context.Context, c *command.Context) error {
	uptime := time.Since(c.Services.StartedAt).Round(time.Second)
	return c.Reply(ctx, fmt.Sprintf("🏓 Pong!\nUptime: %s", uptime))
}

func runMenu(ctx context.Context, c *command.Context) error {
	cfg := c.Services.Cfg.Get()
	categories, grouped := command.Categories()

	var b strings.Builder
	fmt.Fprintf(&b, "🤖 *%s*\nPrefix: %s\n", cfg.BotName, cfg.Prefix)
	for _, category := range categories {
		fmt.Fprintf(&b, "\n*%s*\n", strings.ToUpper(category))
		for _, cmd := range grouped[category] {
			fmt.Fprintf(&b, "• %s%s — %s\n", cfg.Prefix, cmd.Name, cmd.Description)
		}
	}
	return c.Reply(ctx, strings.TrimSpace(b.String()))
}

func runStats(ctx context.Context, c *command.Context) error {
	stats, err := c.Services.DB.Stats(c.From.String())
	if err != nil {
		return err
	}
	if stats.Total == 0 {
		return c.Reply(ctx, "📊 No messages recorded yet!")
	}

	type userCount struct {
		user  string
		count int
	}
	top := make([]userCount, 0, len(stats.ByUser))
	for user, count := range stats.ByUser {
		top = append(top, userCount{user, count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].count != top[j].count {
			return top[i].count > top[j].count
		}
		return top[i].user < top[j].user
	})
	if len(top) > 10 {
		top = top[:10]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Group stats*\nTotal messages: %d\n\n*Top senders*\n", stats.Total)
	for i, entry := range top {
		fmt.Fprintf(&b, "%d. +%s — %d\n", i+1, entry.user, entry.count)
	}
	return c.Reply(ctx, strings.TrimSpace(b.String()))
}

// runSticker acknowledges sticker requests. Media download and WebP
// conversion are not wired into this build, so the reply says so instead of
// failing silently.
func runSticker(ctx context.Context, c *command.Context) error {
	if !whatsapp.HasVisualMedia(c.Content) {
		return c.Reply(ctx, "🖼️ Send or reply to an image or short video!")
	}
	return c.Reply(ctx, "🧩 Sticker conversion is not available in this build")
}
