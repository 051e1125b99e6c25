package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository/sqlite"
)

const testTokenKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSealer(t *testing.T) *auth.Sealer {
	t.Helper()
	s, err := auth.NewSealer(testTokenKey)
	require.NoError(t, err)
	return s
}

func newTestUser(t *testing.T, db *sqlite.DB, email string) *model.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, nil, nil)
	require.NoError(t, err)
	return u
}

// fakeProvider is a TokenProvider whose refresh outcome the test decides.
type fakeProvider struct {
	name        string
	refreshed   *auth.RefreshedToken
	err         error
	calls       int
	lastRefresh string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://example.com/authorize?state=" + state
}

func (f *fakeProvider) Exchange(context.Context, string) (*auth.SignIn, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*auth.RefreshedToken, error) {
	f.calls++
	f.lastRefresh = refreshToken
	if f.err != nil {
		return nil, f.err
	}
	return f.refreshed, nil
}

func (f *fakeProvider) Validate(context.Context, string) bool { return f.err == nil }
