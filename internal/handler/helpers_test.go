package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/handler"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
	"github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/service"
)

const (
	testJWTSecret = "handler-test-secret-0123456789"
	testTokenKey  = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// testEnv is the full handler stack over an in-memory database.
type testEnv struct {
	t        *testing.T
	db       *sqlite.DB
	jwt      *auth.JWTService
	provider *fakeProvider
	sealer   *auth.Sealer
	router   chi.Router
	logs     *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	jwt, err := auth.NewJWTService(testJWTSecret, 0)
	require.NoError(t, err)
	sealer, err := auth.NewSealer(testTokenKey)
	require.NoError(t, err)

	provider := &fakeProvider{name: model.ProviderGitHub}
	tokens := auth.NewTokenService(auth.NewRegistry(provider))

	categories := service.NewCategoryService(db, logger)
	genres := service.NewGenreService(db, logger)
	urls := service.NewURLService(db, logger)
	identities := service.NewIdentityService(db, sealer, logger)
	sessions := service.NewSessionService(db, tokens, sealer, logger)

	authH := handler.NewAuthHandler(tokens, jwt, identities, sessions, logger)
	categoryH := handler.NewCategoryHandler(categories, genres, logger)
	genreH := handler.NewGenreHandler(genres, urls, logger)
	urlH := handler.NewURLHandler(urls, logger)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) {
		r.Get("/{provider}/login", authH.HandleLogin)
		r.Get("/{provider}/callback", authH.HandleCallback)
		r.Post("/logout", authH.HandleLogout)
	})
	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwt))
		r.Get("/me", authH.HandleMe)
		r.Get("/session", authH.HandleSession)
		r.Post("/session/refresh", authH.HandleRefresh)

		r.Get("/categories", categoryH.HandleList)
		r.Post("/categories", categoryH.HandleCreate)
		r.Get("/categories/{id}", categoryH.HandleGetByID)
		r.Patch("/categories/{id}", categoryH.HandleUpdate)
		r.Delete("/categories/{id}", categoryH.HandleDelete)
		r.Get("/categories/{id}/deletion-stats", categoryH.HandleDeletionStats)
		r.Get("/categories/{id}/genres", categoryH.HandleListGenres)

		r.Post("/genres", genreH.HandleCreate)
		r.Get("/genres/{id}", genreH.HandleGetByID)
		r.Patch("/genres/{id}", genreH.HandleUpdate)
		r.Delete("/genres/{id}", genreH.HandleDelete)
		r.Get("/genres/{id}/deletion-stats", genreH.HandleDeletionStats)
		r.Get("/genres/{id}/urls", genreH.HandleListURLs)

		r.Post("/urls", urlH.HandleCreate)
		r.Delete("/urls/{id}", urlH.HandleDelete)
		r.Post("/urls/{id}/visit", urlH.HandleVisit)
	})

	return &testEnv{t: t, db: db, jwt: jwt, provider: provider, sealer: sealer, router: r, logs: logs}
}

// signIn creates a user with a linked github account and returns a session
// cookie for it.
func (e *testEnv) signIn(email string) (*model.User, *http.Cookie) {
	e.t.Helper()
	ctx := context.Background()

	u, err := e.db.CreateUser(ctx, email, nil, nil)
	require.NoError(e.t, err)
	access, err := e.sealer.Seal("gho_" + email)
	require.NoError(e.t, err)
	refresh, err := e.sealer.Seal("ghr_" + email)
	require.NoError(e.t, err)
	_, err = e.db.UpsertUserProvider(ctx, repository.UpsertProviderParams{
		UserID:            u.ID,
		Provider:          model.ProviderGitHub,
		ProviderAccountID: "acct-" + email,
		AccessToken:       &access,
		RefreshToken:      &refresh,
	})
	require.NoError(e.t, err)

	token, err := e.jwt.Generate(auth.Identity{UserID: u.ID, Email: email, Provider: model.ProviderGitHub})
	require.NoError(e.t, err)
	return u, &http.Cookie{Name: auth.SessionCookie, Value: token}
}

// do sends a request with an optional JSON body and session cookie.
func (e *testEnv) do(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(e.t, err)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

// fakeProvider stands in for an OAuth vendor.
type fakeProvider struct {
	name        string
	signIn      *auth.SignIn
	exchangeErr error
	refreshed   *auth.RefreshedToken
	refreshErr  error
	lastCode    string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example/authorize?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.SignIn, error) {
	f.lastCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if f.signIn == nil {
		return nil, errors.New("no sign-in configured")
	}
	return f.signIn, nil
}

func (f *fakeProvider) Refresh(context.Context, string) (*auth.RefreshedToken, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshed, nil
}

func (f *fakeProvider) Validate(context.Context, string) bool { return true }
