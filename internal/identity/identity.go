package identity

import (
	"context"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow/types"
)

// WhatsApp addresses one account through two identifier families: phone-number
// JIDs and privacy LIDs. The server part tells them apart.
const (
	pnServer        = types.DefaultUserServer
	lidServer       = types.HiddenUserServer
	legacyPNServer  = "c.us"
	hostedPNServer  = "hosted"
	hostedLIDServer = "hosted.lid"
)

// MappingStore resolves the PN<->LID relation for bare user parts. A missing
// mapping is reported as an empty string with a nil error.
type MappingStore interface {
	LIDForPN(ctx context.Context, user string) (string, error)
	PNForLID(ctx context.Context, user string) (string, error)
}

// Resolver canonicalizes identifiers and expands them into their set of
// known-equivalent forms. Mapping lookups are cached for the process lifetime,
// negatives included, since mappings are only ever appended.
type Resolver struct {
	store MappingStore

	mu    sync.RWMutex
	cache map[string]string
}

func NewResolver(store MappingStore) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]string),
	}
}

func isPNFamily(server string) bool {
	return server == pnServer || server == hostedPNServer
}

func isLIDFamily(server string) bool {
	return server == lidServer || server == hostedLIDServer
}

func (r *Resolver) lookup(ctx context.Context, direction, user string) string {
	if user == "" {
		return ""
	}

	key := direction + ":" + user
	r.mu.RLock()
	mapped, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return mapped
	}

	var err error
	if r.store != nil {
		switch direction {
		case "pnToLid":
			mapped, err = r.store.LIDForPN(ctx, user)
		case "lidToPn":
			mapped, err = r.store.PNForLID(ctx, user)
		}
		if err != nil {
			mapped = ""
		}
	}

	r.mu.Lock()
	r.cache[key] = mapped
	r.mu.Unlock()
	return mapped
}

// Normalize resolves an identifier to its canonical phone-number form,
// dropping any device suffix. LID-family identifiers are translated through
// the mapping store when the relation is known; the hosted distinction is
// preserved. Unknown servers fall back to the plain phone-number server.
func (r *Resolver) Normalize(ctx context.Context, jid types.JID) types.JID {
	if jid.User == "" {
		return jid
	}
	if jid.Server == types.GroupServer || jid.Server == types.BroadcastServer || jid.Server == types.NewsletterServer {
		return types.NewJID(jid.User, jid.Server)
	}

	user := jid.User
	server := jid.Server
	if server == legacyPNServer {
		server = pnServer
	}

	if isLIDFamily(server) {
		if pnUser := r.lookup(ctx, "lidToPn", user); pnUser != "" {
			user = pnUser
			if server == hostedLIDServer {
				server = hostedPNServer
			} else {
				server = pnServer
			}
		}
	} else if isPNFamily(server) {
		if pnUser := r.lookup(ctx, "lidToPn", user); pnUser != "" {
			user = pnUser
		}
	}

	if server == hostedPNServer {
		return types.NewJID(user, hostedPNServer)
	}
	return types.NewJID(user, pnServer)
}

// NormalizeString parses raw identifier text and normalizes it. Malformed
// input never fails: the device suffix and domain are stripped and the rest
// is re-tagged as a phone-number identifier.
func (r *Resolver) NormalizeString(ctx context.Context, raw string) types.JID {
	if raw == "" {
		return types.EmptyJID
	}

	jid, err := types.ParseJID(raw)
	if err != nil || jid.User == "" {
		user := raw
		if i := strings.IndexByte(user, ':'); i >= 0 {
			user = user[:i]
		}
		if i := strings.IndexByte(user, '@'); i >= 0 {
			user = user[:i]
		}
		user = strings.TrimPrefix(strings.TrimSpace(user), "+")
		if user == "" {
			return types.EmptyJID
		}
		return types.NewJID(user, pnServer)
	}
	return r.Normalize(ctx, jid)
}

// ComparableIDs expands an identifier into every equivalent form currently
// known: the normalized-server input itself plus its PN or LID counterpart
// when a mapping exists. Matching two identifiers for "same account" must
// intersect these sets, never compare raw strings.
func (r *Resolver) ComparableIDs(ctx context.Context, jid types.JID) []types.JID {
	if jid.User == "" {
		return nil
	}

	server := jid.Server
	if server == legacyPNServer {
		server = pnServer
	}

	variants := []types.JID{types.NewJID(jid.User, server)}

	switch {
	case isPNFamily(server):
		if lidUser := r.lookup(ctx, "pnToLid", jid.User); lidUser != "" {
			counterpart := lidServer
			if server == hostedPNServer {
				counterpart = hostedLIDServer
			}
			variants = appendUniqueJID(variants, types.NewJID(lidUser, counterpart))
		}
	case isLIDFamily(server):
		if pnUser := r.lookup(ctx, "lidToPn", jid.User); pnUser != "" {
			counterpart := pnServer
			if server == hostedLIDServer {
				counterpart = hostedPNServer
			}
			variants = appendUniqueJID(variants, types.NewJID(pnUser, counterpart))
		}
	}

	return variants
}

func appendUniqueJID(list []types.JID, jid types.JID) []types.JID {
	for _, existing := range list {
		if existing == jid {
			return list
		}
	}
	return append(list, jid)
}
