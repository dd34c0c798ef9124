package dispatch

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nattydev/whatsguard/pkg/log"
)

// HandleGroupChange reacts to participant joins and leaves: the cached
// metadata is stale the moment the roster changes, and the group may have
// welcome or goodbye messages configured.
func (d *Dispatcher) HandleGroupChange(evt *events.GroupInfo) {
	defer func() {
		if r := recover(); r != nil {
			log.Print(logrus.Fields{"panic": r}).Error("Group event pipeline panicked")
		}
	}()

	if evt == nil {
		return
	}

	ctx := context.Background()
	d.svc.Groups.Invalidate(evt.JID)

	if len(evt.Join) == 0 && len(evt.Leave) == 0 {
		return
	}

	settings, err := d.svc.DB.GroupSettings(evt.JID.String())
	if err != nil {
		log.Print(nil).WithError(err).Warn("Failed to load group settings")
		return
	}

	if settings.Welcome {
		for _, user := range evt.Join {
			d.sendRosterNotice(ctx, evt.JID, user, settings.WelcomeMessage)
		}
	}
	if settings.Goodbye {
		for _, user := range evt.Leave {
			d.sendRosterNotice(ctx, evt.JID, user, settings.GoodbyeMessage)
		}
	}
}

func (d *Dispatcher) sendRosterNotice(ctx context.Context, group, user types.JID, template string) {
	if template == "" {
		return
	}
	target := d.svc.IDs.Normalize(ctx, user)
	if target.User == "" {
		return
	}

	text := strings.ReplaceAll(template, "@user", "@"+target.User)
	d.svc.Tasks.Submit("roster-notice", func(tctx context.Context) error {
		_, err := d.svc.WA.SendMentions(tctx, group, text, []types.JID{target})
		return err
	})
}
