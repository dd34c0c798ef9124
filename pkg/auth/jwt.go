package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nattydev/whatsguard/pkg/env"
)

// JWTSecretKey signs API tokens. Optional: without it the login endpoint
// refuses to issue tokens.
var JWTSecretKey string

func init() {
	JWTSecretKey, _ = env.GetEnvString("JWT_SECRET_KEY")
}

// APITokenClaims is the payload of an issued API token.
type APITokenClaims struct {
	TokenID string `json:"token_id"`
	jwt.RegisteredClaims
}

// GenerateAPIToken creates a long-lived bearer token for the status API. The
// token does not expire; rotating JWT_SECRET_KEY invalidates all of them.
func GenerateAPIToken() (string, error) {
	if JWTSecretKey == "" {
		return "", errors.New("JWT_SECRET_KEY not configured")
	}

	claims := APITokenClaims{
		TokenID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "api",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecretKey))
}

// ValidateAPIToken validates a bearer token and returns its claims.
func ValidateAPIToken(tokenString string) (*APITokenClaims, error) {
	if JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &APITokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*APITokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}
