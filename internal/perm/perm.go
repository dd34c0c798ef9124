package perm

import (
	"context"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/identity"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

// ModeratorSource answers whether a bare phone number is on the moderator
// list. The flat-file store implements it.
type ModeratorSource interface {
	IsModerator(number string) bool
}

// SelfIdentity exposes the bot's own identifiers; the session implements it.
type SelfIdentity interface {
	SelfID() types.JID
	SelfLID() types.JID
}

// Resolver computes the capability flags of a sender/group pair. Admin and
// bot-admin answers are authority decisions: when no metadata is supplied
// they go through the live (never cached) fetch path, since granting a
// privileged action on a stale admin read is unsafe. The 60s cache is for
// cosmetic checks only.
type Resolver struct {
	IDs    *identity.Resolver
	Groups *whatsapp.GroupCache
	Cfg    *config.Store
	Mods   ModeratorSource
	Self   SelfIdentity
}

// IsOwner compares the sender against the configured owner numbers on
// normalized user parts; device suffixes and LID aliasing never matter here.
func (r *Resolver) IsOwner(ctx context.Context, sender types.JID) bool {
	senderUser := r.IDs.Normalize(ctx, sender).User
	if senderUser == "" {
		return false
	}
	for _, owner := range r.Cfg.Get().OwnerNumbers {
		if ownerUser := r.IDs.NormalizeString(ctx, owner).User; ownerUser == senderUser {
			return true
		}
	}
	return false
}

// IsModerator checks the bare number portion of the sender against the
// moderator list.
func (r *Resolver) IsModerator(ctx context.Context, sender types.JID) bool {
	if r.Mods == nil {
		return false
	}
	number := r.IDs.Normalize(ctx, sender).User
	if number == "" {
		return false
	}
	return r.Mods.IsModerator(number)
}

// IsAdmin reports whether sender holds admin or superadmin rank in group.
// Non-group identifiers short-circuit to false without a transport call.
// Unavailable metadata also answers false, never an error.
func (r *Resolver) IsAdmin(ctx context.Context, sender types.JID, group types.JID, meta *types.GroupInfo) bool {
	if group.Server != types.GroupServer {
		return false
	}
	if meta == nil {
		meta = r.Groups.Live(ctx, group)
	}
	if meta == nil {
		return false
	}

	p := r.IDs.FindParticipant(ctx, meta.Participants, sender)
	return p != nil && (p.IsAdmin || p.IsSuperAdmin)
}

// IsBotAdmin is IsAdmin for the bot's own account, matched through every
// plausible self identifier (device PN JID and privacy LID).
func (r *Resolver) IsBotAdmin(ctx context.Context, group types.JID, meta *types.GroupInfo) bool {
	if group.Server != types.GroupServer {
		return false
	}
	if meta == nil {
		meta = r.Groups.Live(ctx, group)
	}
	if meta == nil {
		return false
	}

	targets := make([]types.JID, 0, 2)
	if r.Self != nil {
		if id := r.Self.SelfID(); id.User != "" {
			targets = append(targets, id)
		}
		if lid := r.Self.SelfLID(); lid.User != "" {
			targets = append(targets, lid)
		}
	}
	if len(targets) == 0 {
		return false
	}

	p := r.IDs.FindParticipant(ctx, meta.Participants, targets...)
	return p != nil && (p.IsAdmin || p.IsSuperAdmin)
}
