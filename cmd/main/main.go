package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	cron "github.com/robfig/cron/v3"

	"github.com/nattydev/whatsguard/internal"
	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/internal/config"
	"github.com/nattydev/whatsguard/internal/dispatch"
	"github.com/nattydev/whatsguard/internal/httpapi"
	"github.com/nattydev/whatsguard/internal/identity"
	"github.com/nattydev/whatsguard/internal/perm"
	"github.com/nattydev/whatsguard/internal/store"
	"github.com/nattydev/whatsguard/internal/tasks"
	"github.com/nattydev/whatsguard/pkg/env"
	"github.com/nattydev/whatsguard/pkg/log"
	pkgWhatsApp "github.com/nattydev/whatsguard/pkg/whatsapp"

	// Command handlers register themselves on import.
	_ "github.com/nattydev/whatsguard/internal/commands"
)

func main() {
	ctx := context.Background()

	session, err := pkgWhatsApp.NewSession(ctx)
	if err != nil {
		log.Print(nil).Fatal("Failed to initialize WhatsApp session: " + err.Error())
	}

	cfgPath := env.GetEnvStringOrDefault("BOT_CONFIG_FILE", session.DataDir()+"/config.json")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Print(nil).Fatal("Failed to load config: " + err.Error())
	}

	db, err := store.Open(session.DataDir())
	if err != nil {
		log.Print(nil).Fatal("Failed to open data store: " + err.Error())
	}

	ids := identity.NewResolver(identity.NewMultiMappingStore(
		identity.NewDeviceMappingStore(session.LIDStore()),
		identity.NewFileMappingStore(session.DataDir()),
	))
	groups := pkgWhatsApp.NewGroupCache(session, pkgWhatsApp.DefaultGroupCacheTTL)
	perms := &perm.Resolver{IDs: ids, Groups: groups, Cfg: cfg, Mods: db, Self: session}

	queue := tasks.New(
		env.GetEnvIntOrDefault("BOT_TASK_QUEUE_SIZE", 128),
		float64(env.GetEnvIntOrDefault("BOT_TASK_RATE_PER_SECOND", 2)),
		env.GetEnvIntOrDefault("BOT_TASK_RATE_BURST", 4),
	)

	svc := &command.Services{
		WA:        session,
		Groups:    groups,
		IDs:       ids,
		Perms:     perms,
		DB:        db,
		Cfg:       cfg,
		Tasks:     queue,
		StartedAt: time.Now(),
	}

	dispatcher := dispatch.New(svc)
	session.OnEvent(dispatcher.HandleEvent)

	// Initialize Cron
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DiscardLogger),
	), cron.WithSeconds())

	// Status API
	app := httpapi.New(svc, session)
	address := env.GetEnvStringOrDefault("SERVER_ADDRESS", "0.0.0.0")
	port := env.GetEnvStringOrDefault("SERVER_PORT", "7001")
	go func() {
		if err := app.Listen(address + ":" + port); err != nil {
			log.Print(nil).Fatal(err.Error())
		}
	}()

	if err := internal.Startup(ctx, session); err != nil {
		log.Print(nil).Fatal("Failed to start WhatsApp session: " + err.Error())
	}

	internal.Routines(c, session, groups, dispatcher, db)

	// Watch for Shutdown Signal
	sigShutdown := make(chan os.Signal, 1)
	signal.Notify(sigShutdown, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigShutdown

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(ctxShutdown); err != nil {
		log.Print(nil).Error(err.Error())
	}
	c.Stop()
	queue.Stop(ctxShutdown)
	session.Disconnect()
}
