package whatsapp

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"

	"github.com/nattydev/whatsguard/pkg/env"
)

var (
	waVersionRefreshGroup singleflight.Group

	waVersionMu            sync.RWMutex
	waVersionLastRefreshed time.Time
	waVersionLastError     string
)

// WAVersionStatus describes the client version advertised to WhatsApp and the
// outcome of the last refresh.
type WAVersionStatus struct {
	CurrentVersion store.WAVersionContainer `json:"current_version"`
	LastRefreshed  time.Time                `json:"last_refreshed"`
	LastError      string                   `json:"last_error,omitempty"`
}

func WAVersion() WAVersionStatus {
	waVersionMu.RLock()
	defer waVersionMu.RUnlock()
	return WAVersionStatus{
		CurrentVersion: store.GetWAVersion(),
		LastRefreshed:  waVersionLastRefreshed,
		LastError:      waVersionLastError,
	}
}

// RefreshWAVersion fetches the latest WhatsApp Web version and applies it
// globally. Throttled by WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL (default
// 10m) unless force is set; an outdated advertised version breaks QR pairing.
func RefreshWAVersion(ctx context.Context, force bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	minInterval := env.GetEnvDurationOrDefault("WHATSAPP_WAVERSION_REFRESH_MIN_INTERVAL", 10*time.Minute)
	if !force && minInterval > 0 {
		waVersionMu.RLock()
		last := waVersionLastRefreshed
		waVersionMu.RUnlock()
		if !last.IsZero() && time.Since(last) < minInterval {
			return nil
		}
	}

	_, err, _ := waVersionRefreshGroup.Do("refresh", func() (interface{}, error) {
		httpClient := &http.Client{Timeout: 15 * time.Second}
		latest, fetchErr := whatsmeow.GetLatestVersion(ctx, httpClient)

		waVersionMu.Lock()
		waVersionLastRefreshed = time.Now()
		if fetchErr != nil {
			waVersionLastError = fetchErr.Error()
			waVersionMu.Unlock()
			return nil, fetchErr
		}
		waVersionLastError = ""
		waVersionMu.Unlock()

		if latest != nil {
			store.SetWAVersion(*latest)
		}
		return nil, nil
	})
	return err
}
