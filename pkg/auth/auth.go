// Package auth guards the status API: the admin secret is exchanged for a
// bearer token at login, every other protected route validates that token.
package auth

import (
	"github.com/nattydev/whatsguard/pkg/env"
)

// AdminSecretKey unlocks the login endpoint. When unset the protected routes
// are unreachable.
var AdminSecretKey string

func init() {
	AdminSecretKey, _ = env.GetEnvString("ADMIN_SECRET_KEY")
}
