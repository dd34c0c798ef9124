package whatsapp

import (
	"time"

	"go.mau.fi/whatsmeow/types"
)

// GroupSummary is the operational snapshot of a joined group served by the
// status API.
type GroupSummary struct {
	JID          string    `json:"jid"`
	Name         string    `json:"name"`
	Participants int       `json:"participants"`
	Admins       int       `json:"admins"`
	IsAnnounce   bool      `json:"is_announce"`
	IsLocked     bool      `json:"is_locked"`
	Created      time.Time `json:"created"`
}

func SummarizeGroup(info *types.GroupInfo) GroupSummary {
	if info == nil {
		return GroupSummary{}
	}

	admins := 0
	for _, p := range info.Participants {
		if p.IsAdmin || p.IsSuperAdmin {
			admins++
		}
	}

	return GroupSummary{
		JID:          info.JID.String(),
		Name:         info.Name,
		Participants: len(info.Participants),
		Admins:       admins,
		IsAnnounce:   info.IsAnnounce,
		IsLocked:     info.IsLocked,
		Created:      info.GroupCreated,
	}
}

func SummarizeGroups(infos []*types.GroupInfo) []GroupSummary {
	out := make([]GroupSummary, 0, len(infos))
	for _, info := range infos {
		out = append(out, SummarizeGroup(info))
	}
	return out
}
