// Package auth covers everything about who the caller is: the session JWT
// carried in a cookie, the middleware that checks it, the OAuth providers
// users sign in with, and the refresh of their provider tokens.
//
// SESSION FLOW:
//  1. User visits /auth/{provider}/login and is redirected to the provider
//  2. The provider calls back /auth/{provider}/callback with a code
//  3. The server exchanges the code, links the provider to a user row and
//     issues a session JWT in an HttpOnly cookie
//  4. RequireAuth validates that cookie on every /api request and puts the
//     Identity into the request context
//
// The JWT carries the user id as "sub" plus the email and provider used to
// sign in, which is what session hydration needs to find the stored
// provider tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "linkshelf"

// DefaultSessionTTL is used when the configured TTL is zero.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Identity is what a valid session token proves about the caller.
type Identity struct {
	UserID   string
	Email    string
	Provider string
}

// JWTService signs and verifies session tokens with HMAC-SHA256.
type JWTService struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTService rejects secrets shorter than 16 characters.
// Example: LINKSHELF_AUTH_JWT_SECRET=$(openssl rand -hex 32)
func NewJWTService(secret string, ttl time.Duration) (*JWTService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long a freshly issued session stays valid. Handlers use it
// as the cookie MaxAge.
func (s *JWTService) TTL() time.Duration {
	return s.ttl
}

type claims struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// Generate issues a session token for id that expires after TTL.
func (s *JWTService) Generate(id Identity) (string, error) {
	return s.GenerateWithDuration(id, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use a
// negative duration to get an already expired token.
func (s *JWTService) GenerateWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email:    id.Email,
		Provider: id.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenStr and returns the Identity it carries.
//
// jwt.WithValidMethods pins HS256 so a token claiming "alg":"none" or an
// asymmetric algorithm is rejected before the key func runs.
func (s *JWTService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Identity{
		UserID:   c.Subject,
		Email:    c.Email,
		Provider: c.Provider,
	}, nil
}
