package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler runs the OAuth sign-in flow and exposes the session.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin    → redirect the browser to the provider's consent page
//   - HandleCallback → exchange the code, link the account, issue the session cookie
//   - HandleLogout   → clear the session cookie
//   - HandleMe       → the signed-in user's profile
//   - HandleSession  → the hydrated session, refreshing an expired provider token
//   - HandleRefresh  → force a provider token refresh
type AuthHandler struct {
	tokens     *auth.TokenService
	jwt        *auth.JWTService
	identities *service.IdentityService
	sessions   *service.SessionService
	logger     *slog.Logger

	// SecureCookies marks cookies Secure; set it when served over HTTPS.
	SecureCookies bool
	// AfterLogin is where a completed sign-in lands. Defaults to "/".
	AfterLogin string
}

func NewAuthHandler(
	tokens *auth.TokenService,
	jwt *auth.JWTService,
	identities *service.IdentityService,
	sessions *service.SessionService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		tokens:     tokens,
		jwt:        jwt,
		identities: identities,
		sessions:   sessions,
		logger:     logger,
		AfterLogin: "/",
	}
}

// HandleLogin redirects the user to the provider's authorization page.
//
// HTTP: GET /auth/{provider}/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	provider, err := h.tokens.Provider(chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, err)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth/",
		MaxAge:   600, // 10 minutes to approve
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth sign-in.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for tokens and a profile
//  3. Find or create the user and store the sealed provider tokens
//  4. Issue the session JWT in an HttpOnly cookie
//  5. Redirect to the app
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	provider, err := h.tokens.Provider(name)
	if err != nil {
		writeError(w, err)
		return
	}

	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", name))
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", name),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, h.AfterLogin+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	// --- Step 2: Exchange the code ---
	signIn, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: exchange failed",
			slog.String("provider", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 3: Link the account ---
	user, err := h.identities.SignIn(r.Context(), name, signIn)
	if err != nil {
		writeError(w, err)
		return
	}

	// --- Step 4: Issue the session cookie ---
	token, err := h.jwt.Generate(auth.Identity{UserID: user.ID, Email: user.Email, Provider: name})
	if err != nil {
		h.logger.Error("auth callback: token generation failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwt.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	// --- Step 5: Back to the app ---
	http.Redirect(w, r, h.AfterLogin, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// Sessions are stateless JWTs, so the token stays valid until it expires;
// without the cookie the browser simply stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.identities.Me(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleSession returns the hydrated session. When the provider token had
// expired and could not be refreshed, the body says needsReauth=true.
//
// HTTP: GET /api/session
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	sess, err := h.sessions.Hydrate(r.Context(), id.Email, id.Provider)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleRefresh forces a provider token refresh.
//
// HTTP: POST /api/session/refresh
// RESPONSE: {"success": true, "expiresAt": 1700000000} or
// {"success": false, "error": "..."}. A failed refresh is still a 200: the
// client reads success and sends the user back through sign-in.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	result := h.sessions.RefreshProviderToken(r.Context(), id.Email, id.Provider)
	writeJSON(w, http.StatusOK, result)
}
