package policy

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/nattydev/whatsguard/pkg/log"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

// HandleCallOffer rejects an incoming call and blocks the caller. The flag is
// global, not per-group: calls arrive outside any group context. Failures are
// logged and swallowed; there is nothing to retry.
func HandleCallOffer(ctx context.Context, wa whatsapp.Transport, evt *events.CallOffer, enabled bool) {
	if !enabled || evt == nil {
		return
	}

	caller := evt.CallCreator
	fields := logrus.Fields{"caller": caller.String(), "call_id": evt.CallID}

	if err := wa.RejectCall(ctx, caller, evt.CallID); err != nil {
		log.Print(fields).WithError(err).Warn("Failed to reject incoming call")
	}
	if err := wa.BlockUser(ctx, caller); err != nil {
		log.Print(fields).WithError(err).Warn("Failed to block caller")
		return
	}
	log.Print(fields).Info("Rejected incoming call and blocked caller")
}
