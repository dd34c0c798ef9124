package identity

import (
	"context"

	"go.mau.fi/whatsmeow/types"
)

// FindParticipant locates a group member by any of the given target
// identifiers, tolerating PN/LID mismatches on either side. Both the targets
// and every participant's known identifiers (primary JID, LID alias, phone
// number alias) are expanded through ComparableIDs before comparison. Returns
// nil when nothing matches or no usable target was given.
func (r *Resolver) FindParticipant(ctx context.Context, participants []types.GroupParticipant, targets ...types.JID) *types.GroupParticipant {
	wanted := make(map[types.JID]struct{})
	for _, target := range targets {
		if target.User == "" {
			continue
		}
		for _, id := range r.ComparableIDs(ctx, target) {
			wanted[id] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	for i := range participants {
		p := &participants[i]
		for _, own := range []types.JID{p.JID, p.LID, p.PhoneNumber} {
			if own.User == "" {
				continue
			}
			for _, id := range r.ComparableIDs(ctx, own) {
				if _, ok := wanted[id]; ok {
					return p
				}
			}
		}
	}
	return nil
}
