// Package httpapi serves the read-mostly status API next to the bot: login,
// health, group summaries, per-group settings and stats, and pairing helpers.
package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"

	"github.com/nattydev/whatsguard/internal/command"
	"github.com/nattydev/whatsguard/pkg/auth"
	"github.com/nattydev/whatsguard/pkg/router"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

type Server struct {
	svc     *command.Services
	session *whatsapp.Session
}

// New builds the fiber app with the shared middleware chain and all routes
// registered.
func New(svc *command.Services, session *whatsapp.Session) *fiber.App {
	s := &Server{svc: svc, session: session}

	app := fiber.New(fiber.Config{
		ErrorHandler: router.HttpErrorHandler,
		BodyLimit:    router.BodyLimitBytes(),
	})

	app.Use(router.HttpRequestID())
	app.Use(router.RecoveryMiddleware())

	app.Use(compress.New(compress.Config{
		Level: compress.Level(router.GZipLevel),
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: router.CORSOrigin,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST",
	}))

	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
	}))

	app.Use(router.HttpRealIP())

	s.routes(app)
	return app
}

func (s *Server) routes(app *fiber.App) {
	base := router.BaseURL

	app.Get(base+"/", s.index)
	app.Get(base+"/health", s.health)
	app.Post(base+"/auth/login", s.login)

	bearer := auth.BearerAuth()
	cached := router.HttpCacheInMemory(router.CacheTTLSeconds)

	app.Get(base+"/auth/qr", bearer, s.loginQRImage)
	app.Post(base+"/pair", bearer, s.pairCode)
	app.Get(base+"/groups", bearer, cached, s.listGroups)
	app.Get(base+"/groups/:group_jid/settings", bearer, s.groupSettings)
	app.Get(base+"/stats/:group_jid", bearer, s.groupStats)
	app.Get(base+"/wa-version", bearer, s.waVersion)
	app.Post(base+"/wa-version/refresh", bearer, s.refreshWAVersion)
}

// parseGroupJID accepts a bare group id or a full JID in the path.
func parseGroupJID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "@") {
		raw += "@g.us"
	}
	if !strings.HasSuffix(raw, "@g.us") {
		return "", false
	}
	return raw, true
}
