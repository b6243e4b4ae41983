// Package auth issues and verifies the bearer credentials used by both the
// HTTP API and the WebSocket gateway, and hashes user passwords.
package auth

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is the identity extracted from a verified token.
type Claims struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// TokenManager signs and verifies HMAC bearer tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a TokenManager with the given HMAC secret and
// token lifetime. A non-positive ttl defaults to 24h.
func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: secret, ttl: ttl}
}

// Issue signs a token carrying the user's identity.
func (m *TokenManager) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"sub":      userID,
		"username": username,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(m.ttl).Unix(),
	}

	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses and validates a token, returning the identity claims.
// Expired, malformed, and badly signed tokens all fail here; only HMAC
// signing methods are accepted.
func (m *TokenManager) Verify(token string) (Claims, error) {
	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(err, "parse token")
	}
	if !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}

	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims type")
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return Claims{}, errors.New("token missing subject")
	}
	username, _ := mapClaims["username"].(string)

	var expiresAt time.Time
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return Claims{UserID: sub, Username: username, ExpiresAt: expiresAt}, nil
}
