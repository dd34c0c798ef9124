package httpapi

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"

	"go.mau.fi/whatsmeow/types"

	"github.com/nattydev/whatsguard/pkg/auth"
	"github.com/nattydev/whatsguard/pkg/router"
	"github.com/nattydev/whatsguard/pkg/whatsapp"
)

func (s *Server) index(c *fiber.Ctx) error {
	cfg := s.svc.Cfg.Get()
	return router.ResponseSuccessWithData(c, "", fiber.Map{
		"name":   cfg.BotName,
		"uptime": time.Since(s.svc.StartedAt).Round(time.Second).String(),
	})
}

func (s *Server) health(c *fiber.Ctx) error {
	connected, loggedIn := false, false
	if client := s.session.Client(); client != nil {
		connected = client.IsConnected()
		loggedIn = client.IsLoggedIn()
	}

	data := fiber.Map{
		"connected": connected,
		"logged_in": loggedIn,
	}
	if id := s.session.SelfID(); id.User != "" {
		data["jid"] = id.String()
	}

	if !connected || !loggedIn {
		return router.ResponseSuccessWithData(c, "degraded", data)
	}
	return router.ResponseSuccessWithData(c, "ok", data)
}

type loginRequest struct {
	AdminSecret string `json:"admin_secret"`
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Invalid request body")
	}

	if !auth.CheckAdminSecret(req.AdminSecret) {
		return router.ResponseUnauthorized(c, "Invalid admin secret")
	}

	token, err := auth.GenerateAPIToken()
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Token issued", fiber.Map{"token": token})
}

func (s *Server) loginQRImage(c *fiber.Ctx) error {
	qrPath := filepath.Join(s.session.DataDir(), "login-qr.png")
	if _, err := os.Stat(qrPath); err != nil {
		return router.ResponseNotFound(c, "No pending login QR code")
	}
	return c.SendFile(qrPath)
}

type pairRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) pairCode(c *fiber.Ctx) error {
	var req pairRequest
	if err := c.BodyParser(&req); err != nil || req.Phone == "" {
		return router.ResponseBadRequest(c, "Missing phone number")
	}

	code, err := s.session.PairCode(c.UserContext(), req.Phone)
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Pairing code issued", fiber.Map{"code": code})
}

func (s *Server) listGroups(c *fiber.Ctx) error {
	groups, err := s.svc.WA.JoinedGroups(c.UserContext())
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "", whatsapp.SummarizeGroups(groups))
}

func (s *Server) groupSettings(c *fiber.Ctx) error {
	raw, ok := parseGroupJID(c.Params("group_jid"))
	if !ok {
		return router.ResponseBadRequest(c, "Invalid group JID")
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return router.ResponseBadRequest(c, "Invalid group JID")
	}

	settings, err := s.svc.DB.GroupSettings(jid.String())
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "", settings)
}

func (s *Server) groupStats(c *fiber.Ctx) error {
	raw, ok := parseGroupJID(c.Params("group_jid"))
	if !ok {
		return router.ResponseBadRequest(c, "Invalid group JID")
	}
	jid, err := types.ParseJID(raw)
	if err != nil {
		return router.ResponseBadRequest(c, "Invalid group JID")
	}

	stats, err := s.svc.DB.Stats(jid.String())
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "", stats)
}

func (s *Server) waVersion(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "", whatsapp.WAVersion())
}

func (s *Server) refreshWAVersion(c *fiber.Ctx) error {
	force := c.QueryBool("force", false)
	if err := whatsapp.RefreshWAVersion(c.UserContext(), force); err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "WA Web version refreshed", whatsapp.WAVersion())
}
