// Package dispatch is the per-message pipeline: envelope unwrapping,
// protection policies, prefix and permission gating, and handler invocation.
// Each inbound event runs on its own goroutine; one message's failure never
// affects the next.
package dispatch

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/pkg/log"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

type Dispatcher struct {
	svc *command.Services

	seenMu sync.Mutex
	seen   map[string]struct{}
}

func New(svc *command.Services) *Dispatcher {
	return &Dispatcher{
		svc:  svc,
		seen: make(map[string]struct{}),
	}
}

// HandleEvent is registered as the session's event handler.
func (d *Dispatcher) HandleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Message:
		go d.HandleMessage(e)
	case *events.CallOffer:
		go d.handleCallOffer(e)
	case *events.GroupInfo:
		go d.HandleGroupChange(e)
	case *events.Connected:
		log.Print(nil).Info("WhatsApp connection established")
	case *events.Disconnected:
		log.Print(nil).Warn("WhatsApp connection lost, waiting for reconnect")
	case *events.StreamReplaced:
		log.Print(nil).Error("WhatsApp stream replaced by another session")
	case *events.LoggedOut:
		log.Print(nil).Error("WhatsApp session logged out, re-pairing required")
	}
}

// markSeen dedupes re-delivered events. The set is a resource bound, cleared
// wholesale by a periodic routine, not a correctness mechanism.
func (d *Dispatcher) markSeen(id string) bool {
	if id == "" {
		return true
	}
	d.seenMu.Lock()
	defer d.seenMu.Unlock()
	if _, dup := d.seen[id]; dup {
		return false
	}
	d.seen[id] = struct{}{}
	return true
}

// ClearSeen resets the dedup window.
func (d *Dispatcher) ClearSeen() {
	d.seenMu.Lock()
	d.seen = make(map[string]struct{})
	d.seenMu.Unlock()
}

func isSystemOrigin(chat types.JID) bool {
	return chat.Server == types.BroadcastServer || chat.Server == types.NewsletterServer
}

// HandleMessage runs the full pipeline for one inbound message.
func (d *Dispatcher) HandleMessage(msg *events.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Print(logrus.Fields{"panic": r}).Error("Message pipeline panicked")
		}
	}()

	if msg == nil || msg.Message == nil {
		return
	}

	ctx := context.Background()
	from := msg.Info.Chat
	if isSystemOrigin(from) {
		return
	}
	if !d.markSeen(msg.Info.ID) {
		return
	}

	content, _ := whatsapp.Unwrap(msg.Message)
	body := strings.TrimSpace(whatsapp.ExtractText(content))

	sender := msg.Info.Sender
	if msg.Info.IsFromMe {
		sender = d.svc.WA.SelfID()
	}

	isGroup := from.Server == types.GroupServer
	cfg := d.svc.Cfg.Get()

	var meta *types.GroupInfo
	settings := store.DefaultGroupSettings()
	if isGroup {
		var err error
		settings, err = d.svc.DB.GroupSettings(from.String())
		if err != nil {
			log.Print(nil).WithError(err).Warn("Failed to load group settings")
		}
		meta = d.svc.Groups.Cached(ctx, from)

		if err := d.svc.DB.CountMessage(from.String(), d.svc.IDs.Normalize(ctx, sender).User); err != nil {
			log.Print(nil).WithError(err).Warn("Failed to record message stats")
		}

		if verdict, notice := d.evalPolicies(ctx, msg, content, body, settings, meta); verdict.Matched {
			d.enforce(ctx, msg, sender, verdict, notice)
			return
		}

		// Incidental link check rides the best-effort queue so the primary
		// path is never delayed by an extra live admin fetch.
		if settings.Antilink && !msg.Info.IsFromMe {
			snapshot := settings
			d.svc.Tasks.Submit("antilink", func(tctx context.Context) error {
				d.checkAntilink(tctx, msg, sender, body, snapshot)
				return nil
			})
		}
	}

	if cfg.AutoRead && !msg.Info.IsFromMe {
		d.svc.Tasks.Submit("mark-read", func(tctx context.Context) error {
			return d.svc.WA.MarkRead(tctx, from, msg.Info.Sender, []string{msg.Info.ID})
		})
	}

	// Per-group autosticker, with the process-wide flag as the default.
	if isGroup && (settings.Autosticker || cfg.AutoSticker) && whatsapp.HasVisualMedia(content) && !strings.HasPrefix(body, cfg.Prefix) {
		if cmd := command.Lookup("sticker"); cmd != nil {
			d.execute(ctx, cmd, msg, content, body, nil, from, sender, isGroup, meta, cfg)
		}
		return
	}

	if body == "" || !strings.HasPrefix(body, cfg.Prefix) {
		return
	}

	parts := strings.Fields(strings.TrimPrefix(body, cfg.Prefix))
	if len(parts) == 0 {
		return
	}
	name := strings.ToLower(parts[0])
	args := parts[1:]

	cmd := command.Lookup(name)
	if cmd == nil {
		// Unknown command: plain chat that happens to start with the prefix.
		return
	}

	d.execute(ctx, cmd, msg, content, body, args, from, sender, isGroup, meta, cfg)
}

// execute evaluates the eligibility flags in order and invokes the handler.
// Admin authority is always resolved against live metadata here.
func (d *Dispatcher) execute(ctx context.Context, cmd *command.Command, msg *events.Message, content *waE2E.Message, body string, args []string, from types.JID, sender types.JID, isGroup bool, meta *types.GroupInfo, cfg config.Config) {
	isOwner := d.svc.Perms.IsOwner(ctx, sender)

	// Private mode locks everyone but the owner out, silently.
	if cfg.SelfMode && !isOwner {
		return
	}

	isMod := d.svc.Perms.IsModerator(ctx, sender)
	var isAdmin, isBotAdmin bool
	if isGroup {
		isAdmin = d.svc.Perms.IsAdmin(ctx, sender, from, nil)
		isBotAdmin = d.svc.Perms.IsBotAdmin(ctx, from, nil)
	}

	c := &command.Context{
		Services:   d.svc,
		Raw:        msg,
		Content:    content,
		Body:       body,
		Args:       args,
		From:       from,
		Sender:     sender,
		IsGroup:    isGroup,
		GroupMeta:  meta,
		IsOwner:    isOwner,
		IsAdmin:    isAdmin,
		IsBotAdmin: isBotAdmin,
		IsMod:      isMod,
	}

	deny := func(text string) {
		if err := c.Reply(ctx, text); err != nil {
			log.Print(nil).WithError(err).Warn("Failed to send denial reply")
		}
	}

	switch {
	case cmd.OwnerOnly && !isOwner:
		deny(cfg.Messages.OwnerOnly)
		return
	case cmd.ModOnly && !isMod && !isOwner:
		deny(cfg.Messages.ModOnly)
		return
	case cmd.GroupOnly && !isGroup:
		deny(cfg.Messages.GroupOnly)
		return
	case cmd.PrivateOnly && isGroup:
		deny(cfg.Messages.PrivateOnly)
		return
	case cmd.AdminOnly && !isAdmin && !isOwner:
		deny(cfg.Messages.AdminOnly)
		return
	case cmd.BotAdminNeeded && !isBotAdmin:
		deny(cfg.Messages.BotAdminNeeded)
		return
	}

	if cfg.AutoTyping {
		d.svc.Tasks.Submit("typing", func(tctx context.Context) error {
			return d.svc.WA.ChatPresence(tctx, from, true)
		})
	}

	if err := cmd.Execute(ctx, c); err != nil {
		if whatsapp.IsRateLimitError(err) {
			log.Print(logrus.Fields{"command": cmd.Name}).WithError(err).Warn("Command rate limited")
			return
		}
		log.Print(logrus.Fields{"command": cmd.Name}).WithError(err).Error("Command execution failed")
		deny(cfg.Messages.Error)
	}
}
