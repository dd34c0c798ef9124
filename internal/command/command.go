// Package command defines the handler contract and the name/alias registry
// the dispatcher routes into.
package command

import (
	"context"
	"time"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/identity"
	"github.com/nattydev/whatsguard/internal/perm"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/internal/tasks"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

// Services bundles the shared collaborators handed to every handler.
type Services struct {
	WA        whatsapp.Transport
	Groups    *whatsapp.GroupCache
	IDs       *identity.Resolver
	Perms     *perm.Resolver
	DB        *store.DB
	Cfg       *config.Store
	Tasks     *tasks.Queue
	StartedAt time.Time
}

// Context carries one message's resolved state into a handler.
type Context struct {
	Services *Services

	Raw     *events.Message
	Content *waE2E.Message
	Body    string
	Args    []string

	From      types.JID
	Sender    types.JID
	IsGroup   bool
	GroupMeta *types.GroupInfo

	IsOwner    bool
	IsAdmin    bool
	IsBotAdmin bool
	IsMod      bool
}

// Reply sends text quoting the triggering message.
func (c *Context) Reply(ctx context.Context, text string) error {
	_, err := c.Services.WA.SendReply(ctx, c.From, text, c.Raw)
	return err
}

// React puts an emoji reaction on the triggering message.
func (c *Context) React(ctx context.Context, emoji string) error {
	return c.Services.WA.React(ctx, c.From, c.Sender, c.Raw.Info.ID, emoji)
}

// Mentions returns the structured mentions of the message, normalized.
func (c *Context) Mentions(ctx context.Context) []types.JID {
	raw := whatsapp.MentionedJIDs(c.Content)
	out := make([]types.JID, 0, len(raw))
	for _, m := range raw {
		if jid := c.Services.IDs.NormalizeString(ctx, m); jid.User != "" {
			out = append(out, jid)
		}
	}
	return out
}

// QuotedSender returns the author of the replied-to message, when the
// triggering message is a reply.
func (c *Context) QuotedSender(ctx context.Context) (types.JID, bool) {
	info := whatsapp.ContextInfoOf(c.Content)
	if info == nil || info.GetParticipant() == "" {
		return types.EmptyJID, false
	}
	jid := c.Services.IDs.NormalizeString(ctx, info.GetParticipant())
	return jid, jid.User != ""
}

// TargetUsers resolves the users a moderation command acts on: structured
// mentions first, then the replied-to author, then bare numbers in args.
func (c *Context) TargetUsers(ctx context.Context) []types.JID {
	if mentions := c.Mentions(ctx); len(mentions) > 0 {
		return mentions
	}
	if quoted, ok := c.QuotedSender(ctx); ok {
		return []types.JID{quoted}
	}

	out := make([]types.JID, 0, len(c.Args))
	for _, arg := range c.Args {
		if jid := c.Services.IDs.NormalizeString(ctx, arg); jid.User != "" && isDigits(jid.User) {
			out = append(out, jid)
		}
	}
	return out
}

func isDigits(s string) bool {
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

// HandlerFunc executes a command.
type HandlerFunc func(ctx context.Context, c *Context) error

// Command declares a handler and its eligibility flags. The dispatcher
// evaluates the flags in a fixed order before Execute runs.
type Command struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string

	GroupOnly      bool
	AdminOnly      bool
	OwnerOnly      bool
	ModOnly        bool
	PrivateOnly    bool
	BotAdminNeeded bool

	Execute HandlerFunc
}
