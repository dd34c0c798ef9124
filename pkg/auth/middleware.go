package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nattydev/whatsguard/pkg/router"
)

// CheckAdminSecret compares a submitted secret against the configured one in
// constant time.
func CheckAdminSecret(secret string) bool {
	if AdminSecretKey == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(AdminSecretKey)) == 1
}

// BearerAuth validates the Authorization header on protected routes.
// Token format: "Bearer <jwt_token>". Validation is stateless.
func BearerAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		claims, err := ValidateAPIToken(parts[1])
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid token")
		}

		c.Locals("token_id", claims.TokenID)
		return c.Next()
	}
}
