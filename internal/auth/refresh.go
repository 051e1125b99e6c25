package auth

import (
	"context"
	"time"
)

// TokenService refreshes and probes provider access tokens. It dispatches
// through the Registry, so an unknown provider fails before any network
// call is made.
type TokenService struct {
	registry *Registry
	now      func() time.Time
}

func NewTokenService(registry *Registry) *TokenService {
	return &TokenService{registry: registry, now: time.Now}
}

// RefreshAccessToken exchanges refreshToken for a new access token.
func (s *TokenService) RefreshAccessToken(ctx context.Context, provider, refreshToken string) (*RefreshedToken, error) {
	p, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	return p.Refresh(ctx, refreshToken)
}

// IsTokenExpired reports whether now is at or past expiresAt (unix seconds).
func (s *TokenService) IsTokenExpired(expiresAt int64) bool {
	return s.now().Unix() >= expiresAt
}

// ExpiresAt projects a refresh response's expires_in onto the clock.
func (s *TokenService) ExpiresAt(expiresIn int64) int64 {
	return s.now().Unix() + expiresIn
}

// CheckTokenValidity reports whether the provider still accepts
// accessToken. Unknown providers are simply invalid.
func (s *TokenService) CheckTokenValidity(ctx context.Context, provider, accessToken string) bool {
	p, err := s.registry.Get(provider)
	if err != nil {
		return false
	}
	return p.Validate(ctx, accessToken)
}

// Provider exposes the registry lookup for the sign-in flow.
func (s *TokenService) Provider(name string) (TokenProvider, error) {
	return s.registry.Get(name)
}
