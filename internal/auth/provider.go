package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/linkshelf/internal/apperror"
)

// Profile is the provider's view of the signed-in account.
type Profile struct {
	AccountID string
	Email     string
	Name      string
	AvatarURL string
}

// SignIn is the outcome of a successful authorization code exchange.
type SignIn struct {
	Profile      Profile
	AccessToken  string
	RefreshToken string // empty when the provider did not issue one
	ExpiresAt    *int64 // unix seconds, nil when the token does not expire
}

// RefreshedToken is what a provider returns for grant_type=refresh_token.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string // empty when the provider kept the old one
	ExpiresIn    int64  // seconds
	TokenType    string
	Scope        string
}

// TokenProvider is one OAuth vendor. Adding a vendor means adding an
// implementation and registering it; nothing switches on provider names.
type TokenProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*SignIn, error)
	Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error)
	// Validate probes the provider's "who am I" endpoint. Any failure,
	// including transport errors, reads as "not valid".
	Validate(ctx context.Context, accessToken string) bool
}

// Registry looks providers up by name.
type Registry struct {
	providers map[string]TokenProvider
}

func NewRegistry(providers ...TokenProvider) *Registry {
	r := &Registry{providers: make(map[string]TokenProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns apperror.ErrUnsupportedProvider for unknown or unconfigured
// providers.
func (r *Registry) Get(name string) (TokenProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, apperror.UnsupportedProvider(name)
	}
	return p, nil
}

// Names lists the registered providers in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// oauthProvider implements TokenProvider on top of golang.org/x/oauth2.
// The vendor files only supply endpoints, scopes and a profile decoder.
type oauthProvider struct {
	name       string
	config     *oauth2.Config
	authOpts   []oauth2.AuthCodeOption
	profileURL string
	client     *http.Client

	// decodeProfile turns the profile endpoint's body into a Profile.
	decodeProfile func(body []byte) (*Profile, error)
	// completeProfile may fill gaps with extra API calls (GitHub hides
	// private emails from /user).
	completeProfile func(ctx context.Context, client *http.Client, p *Profile) error
}

// ProviderOption customises a provider. Tests point providers at httptest
// servers with them.
type ProviderOption func(*oauthProvider)

// WithEndpoint replaces the provider's authorization and token URLs.
func WithEndpoint(authURL, tokenURL string) ProviderOption {
	return func(p *oauthProvider) {
		p.config.Endpoint.AuthURL = authURL
		p.config.Endpoint.TokenURL = tokenURL
	}
}

// WithProfileURL replaces the "who am I" endpoint.
func WithProfileURL(url string) ProviderOption {
	return func(p *oauthProvider) { p.profileURL = url }
}

// WithHTTPClient sets the client used for token and profile requests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *oauthProvider) { p.client = c }
}

func newOAuthProvider(name string, cfg *oauth2.Config, profileURL string, opts ...ProviderOption) *oauthProvider {
	// Every vendor gets client_id/client_secret in the form body.
	cfg.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	p := &oauthProvider{
		name:       name,
		config:     cfg,
		profileURL: profileURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *oauthProvider) Name() string { return p.name }

func (p *oauthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, p.authOpts...)
}

// withClient makes oauth2 use our http.Client for token requests.
func (p *oauthProvider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*SignIn, error) {
	ctx = p.withClient(ctx)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s code: %w", p.name, err)
	}

	client := p.config.Client(ctx, tok)
	body, err := p.getProfile(ctx, client)
	if err != nil {
		return nil, err
	}
	profile, err := p.decodeProfile(body)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile: %w", p.name, err)
	}
	if p.completeProfile != nil {
		if err := p.completeProfile(ctx, client, profile); err != nil {
			return nil, err
		}
	}
	if profile.AccountID == "" {
		return nil, fmt.Errorf("auth: %s returned a profile without an id", p.name)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("auth: %s did not share an email address", p.name)
	}

	in := &SignIn{
		Profile:      *profile,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.Unix()
		in.ExpiresAt = &exp
	}
	return in, nil
}

func (p *oauthProvider) getProfile(ctx context.Context, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building %s profile request: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling %s profile API: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s profile API returned status %d", p.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: reading %s profile: %w", p.name, err)
	}
	return body, nil
}

// Refresh runs grant_type=refresh_token against the token endpoint.
// Rejections become apperror.ErrTokenRefresh with the provider's status.
func (p *oauthProvider) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	if refreshToken == "" {
		return nil, apperror.TokenRefresh(p.name, 0, "", errors.New("no refresh token stored"))
	}

	// A token with only a refresh token is never valid, so Token() always
	// goes to the network.
	src := p.config.TokenSource(p.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, apperror.TokenRefresh(p.name, re.Response.StatusCode, re.Response.Status, err)
		}
		return nil, apperror.TokenRefresh(p.name, 0, "", err)
	}

	// oauth2 copies the old refresh token into tok when the response has
	// none; read the raw field to tell whether the provider rotated it.
	rotated, _ := tok.Extra("refresh_token").(string)
	scope, _ := tok.Extra("scope").(string)

	return &RefreshedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: rotated,
		ExpiresIn:    expiresIn(tok),
		TokenType:    tok.Type(),
		Scope:        scope,
	}, nil
}

// expiresIn prefers the raw expires_in field and falls back to the parsed
// expiry.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return 0
}

func (p *oauthProvider) Validate(ctx context.Context, accessToken string) bool {
	if accessToken == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
