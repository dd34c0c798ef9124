package internal

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nattydev/whatsguard/internal/dispatch"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/pkg/env"
	"github.com/nattydev/whatsguard/pkg/log"
	pkgWhatsApp "github.com/nattydev/whatsguard/pkg/whatsapp"
)

// Routines registers the periodic maintenance jobs and starts the scheduler.
func Routines(c *cron.Cron, session *pkgWhatsApp.Session, groups *pkgWhatsApp.GroupCache, d *dispatch.Dispatcher, db *store.DB) {
	log.Print(nil).Info("Running Routine Tasks")

	// Every five minutes: drop expired group metadata, reset the message
	// dedup window, and log session health.
	_, err := c.AddFunc("0 */5 * * * *", func() {
		groups.Sweep()
		d.ClearSeen()

		client := session.Client()
		if client == nil {
			return
		}
		if !client.IsConnected() || !client.IsLoggedIn() {
			log.Print(nil).Warn("WhatsApp session unhealthy, waiting for reconnect")
		}
	})
	if err != nil {
		log.Print(nil).WithError(err).Error("Failed to add maintenance cron job")
	}

	// Daily at 04:00: trim per-day message stats.
	keepDays := env.GetEnvIntOrDefault("BOT_STATS_KEEP_DAYS", 30)
	_, err = c.AddFunc("0 0 4 * * *", func() {
		if err := db.RotateStats(keepDays); err != nil {
			log.Print(nil).WithError(err).Error("Stats rotation failed")
		}
	})
	if err != nil {
		log.Print(nil).WithError(err).Error("Failed to add stats rotation cron job")
	}

	if isWAVersionRefreshCronEnabled() {
		spec := getWAVersionRefreshCronSpec()
		force := getWAVersionRefreshCronForce()
		_, err := c.AddFunc(spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := pkgWhatsApp.RefreshWAVersion(ctx, force); err != nil {
				log.Print(nil).WithField("force", force).Error("WA Web version refresh failed: " + err.Error())
				return
			}
			log.Print(nil).WithField("force", force).Info("WA Web version refresh completed")
		})
		if err != nil {
			log.Print(nil).WithError(err).Error("Failed to add WA Web version refresh cron job")
		} else {
			log.Print(nil).WithField("spec", spec).WithField("force", force).Info("WA Web version refresh cron enabled")
		}
	}

	c.Start()
}

func isWAVersionRefreshCronEnabled() bool {
	envValue, ok := os.LookupEnv("WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON")
	if !ok {
		return false
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(envValue))
	if err != nil {
		log.Print(nil).Warn("Invalid WHATSAPP_ENABLE_WAVERSION_REFRESH_CRON value; defaulting to disabled")
		return false
	}
	return enabled
}

func getWAVersionRefreshCronSpec() string {
	// robfig/cron with seconds field (6 parts). Default: daily at 03:00:00.
	spec := strings.TrimSpace(os.Getenv("WHATSAPP_WAVERSION_REFRESH_CRON_SPEC"))
	if spec == "" {
		return "0 0 3 * * *"
	}
	return spec
}

func getWAVersionRefreshCronForce() bool {
	raw := strings.TrimSpace(os.Getenv("WHATSAPP_WAVERSION_REFRESH_CRON_FORCE"))
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return b
}
