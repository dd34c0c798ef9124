package internal

import (
	"context"
	mathrand "math/rand/v2"
	"time"

	"github.com/nattydev/whatsguard/pkg/env"
	"github.com/nattydev/whatsguard/pkg/log"
	pkgWhatsApp "github.com/nattydev/whatsguard/pkg/whatsapp"
)

// Startup brings the WhatsApp session online: refreshes the advertised WA Web
// version, connects with retries, and falls back to QR pairing when the
// device has no stored credentials yet.
func Startup(ctx context.Context, session *pkgWhatsApp.Session) error {
	log.Print(nil).Info("Running Startup Tasks")

	if err := pkgWhatsApp.RefreshWAVersion(ctx, false); err != nil {
		log.Print(nil).WithError(err).Warn("WA Web version refresh failed, continuing with stored version")
	}

	if session.SelfID().User == "" {
		log.Print(nil).Info("No stored credentials, starting QR pairing")
		if err := session.LoginQR(ctx); err != nil {
			return err
		}
	} else {
		retries := env.GetEnvIntOrDefault("WHATSAPP_STARTUP_CONNECT_RETRIES", 5)
		baseBackoff := env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_CONNECT_BACKOFF_BASE", 2*time.Second)
		maxBackoff := env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_CONNECT_BACKOFF_MAX", 30*time.Second)
		if err := connectWithRetry(ctx, session, retries, baseBackoff, maxBackoff); err != nil {
			return err
		}
	}

	log.Print(nil).Info("WhatsApp session ready")
	return nil
}

func connectWithRetry(ctx context.Context, session *pkgWhatsApp.Session, retries int, baseBackoff, maxBackoff time.Duration) error {
	if retries < 1 {
		retries = 1
	}
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		lastErr = session.Connect(ctx)
		if lastErr == nil {
			return nil
		}

		// Exponential backoff with small jitter.
		backoff := baseBackoff * time.Duration(1<<(attempt-1))
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(mathrand.Int64N(int64(500*time.Millisecond) + 1))
		log.Print(nil).WithError(lastErr).Warnf("Connect attempt %d/%d failed, retrying in %s", attempt, retries, backoff+jitter)

		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
