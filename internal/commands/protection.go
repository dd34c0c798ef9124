// Package commands holds every chat command handler. Each file registers its
// commands from init(); the binary pulls the package in with a blank import.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/store"
)

// policySpec binds one toggleable protection rule to its settings fields.
type policySpec struct {
	name        string
	label       string
	description string
	enabled     func(store.GroupSettings) bool
	action      func(store.GroupSettings) string
	setEnabled  func(*store.GroupSettings, bool)
	setAction   func(*store.GroupSettings, string)
}

var policySpecs = []policySpec{
	{
		name:        "antilink",
		label:       "Link protection",
		description: "Delete or kick on posted links",
		enabled:     func(s store.GroupSettings) bool { return s.Antilink },
		action:      func(s store.GroupSettings) string { return s.AntilinkAction },
		setEnabled:  func(s *store.GroupSettings, v bool) { s.Antilink = v },
		setAction:   (*store.GroupSettings).SetAntilinkAction,
	},
	{
		name:        "antitag",
		label:       "Mass mention protection",
		description: "Delete or kick on mass mentions",
		enabled:     func(s store.GroupSettings) bool { return s.Antitag },
		action:      func(s store.GroupSettings) string { return s.AntitagAction },
		setEnabled:  func(s *store.GroupSettings, v bool) { s.Antitag = v },
		setAction:   (*store.GroupSettings).SetAntitagAction,
	},
	{
		name:        "antigroupmention",
		label:       "Status mention protection",
		description: "Delete or kick on group status mentions",
		enabled:     func(s store.GroupSettings) bool { return s.Antigroupmention },
		action:      func(s store.GroupSettings) string { return s.AntigroupmentionAction },
		setEnabled:  func(s *store.GroupSettings, v bool) { s.Antigroupmention = v },
		setAction:   (*store.GroupSettings).SetAntigroupmentionAction,
	},
}

func init() {
	for _, spec := range policySpecs {
		spec := spec
		command.Register(&command.Command{
			Name:        spec.name,
			Category:    "protection",
			Description: spec.description,
			Usage:       spec.name + " <on|off|set delete|set kick>",
			GroupOnly:   true,
			AdminOnly:   true,
			Execute: func(ctx context.Context, c *command.Context) error {
				return runPolicyToggle(ctx, c, spec)
			},
		})
	}

	command.Register(&command.Command{
		Name:        "antiall",
		Category:    "protection",
		Description: "Lockdown: delete every non-admin message",
		Usage:       "antiall <on|off>",
		GroupOnly:   true,
		AdminOnly:   true,
		Execute:     runAntiall,
	})
}

func runPolicyToggle(ctx context.Context, c *command.Context, spec policySpec) error {
	usage := "Usage: " + c.Services.Cfg.Get().Prefix + spec.name + " <on|off|set delete|set kick>"

	mode := ""
	if len(c.Args) > 0 {
		mode = strings.ToLower(c.Args[0])
	}
	if mode == "set" {
		if len(c.Args) < 2 {
			return c.Reply(ctx, usage)
		}
		mode = strings.ToLower(c.Args[1])
		if mode != store.ActionDelete && mode != store.ActionKick {
			return c.Reply(ctx, usage)
		}
	}

	var updated store.GroupSettings
	var err error
	switch mode {
	case "", "get":
		current, err := c.Services.DB.GroupSettings(c.From.String())
		if err != nil {
			return err
		}
		return c.Reply(ctx, fmt.Sprintf("🛡️ %s is %s\n%s", spec.label, policyState(spec, current), usage))
	case "on":
		updated, err = c.Services.DB.UpdateGroupSettings(c.From.String(), func(s *store.GroupSettings) {
			spec.setEnabled(s, true)
		})
	case "off":
		updated, err = c.Services.DB.UpdateGroupSettings(c.From.String(), func(s *store.GroupSettings) {
			spec.setEnabled(s, false)
		})
	case store.ActionDelete, store.ActionKick:
		// Choosing an action also turns the rule on.
		updated, err = c.Services.DB.UpdateGroupSettings(c.From.String(), func(s *store.GroupSettings) {
			spec.setAction(s, mode)
		})
	default:
		return c.Reply(ctx, usage)
	}
	if err != nil {
		return err
	}

	return c.Reply(ctx, fmt.Sprintf("🛡️ %s is now %s", spec.label, policyState(spec, updated)))
}

func policyState(spec policySpec, s store.GroupSettings) string {
	if spec.enabled(s) {
		return fmt.Sprintf("enabled ✅ (action: %s)", spec.action(s))
	}
	return "disabled ❌"
}

func runAntiall(ctx context.Context, c *command.Context) error {
	if len(c.Args) == 0 {
		return c.Reply(ctx, "Usage: "+c.Services.Cfg.Get().Prefix+"antiall <on|off>")
	}

	var enable bool
	switch strings.ToLower(c.Args[0]) {
	case "on":
		enable = true
	case "off":
		enable = false
	default:
		return c.Reply(ctx, "Usage: "+c.Services.Cfg.Get().Prefix+"antiall <on|off>")
	}

	if _, err := c.Services.DB.UpdateGroupSettings(c.From.String(), func(s *store.GroupSettings) {
		s.Antiall = enable
	}); err != nil {
		return err
	}

	if enable {
		return c.Reply(ctx, "🔒 Lockdown enabled: every non-admin message will be removed!")
	}
	return c.Reply(ctx, "🔓 Lockdown disabled")
}
