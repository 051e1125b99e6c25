package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "config-test-secret-0123456789"
	testKey    = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

func validViper() *viper.Viper {
	v := NewViper()
	v.Set("auth.jwt_secret", testSecret)
	v.Set("auth.token_key", testKey)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(validViper())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
	assert.Equal(t, "data/linkshelf.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.Metadata.Timeout)
	assert.Empty(t, cfg.OAuth, "providers without credentials stay disabled")
	assert.Equal(t, "http://localhost:8080/auth/google/callback", cfg.CallbackURL("google"))
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LINKSHELF_HTTP_PORT", "9090")
	t.Setenv("LINKSHELF_HTTP_BASE_URL", "https://links.example.com/")
	t.Setenv("LINKSHELF_DATABASE_PATH", "/var/lib/linkshelf/prod.db")
	t.Setenv("LINKSHELF_AUTH_SESSION_TTL", "12h")
	t.Setenv("LINKSHELF_OAUTH_GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("LINKSHELF_OAUTH_GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("LINKSHELF_OAUTH_DISCORD_CLIENT_ID", "only-half")

	cfg, err := Load(validViper())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "https://links.example.com", cfg.HTTP.BaseURL)
	assert.Equal(t, "/var/lib/linkshelf/prod.db", cfg.Database.Path)
	assert.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, OAuthClient{ClientID: "gh-id", ClientSecret: "gh-secret"}, cfg.OAuth["github"])
	assert.NotContains(t, cfg.OAuth, "discord")
	assert.Equal(t, "https://links.example.com/auth/github/callback", cfg.CallbackURL("github"))
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   any
		wantErr string
	}{
		{"short secret", "auth.jwt_secret", "short", "auth.jwt_secret"},
		{"token key not hex", "auth.token_key", strings.Repeat("z", 64), "auth.token_key"},
		{"token key too short", "auth.token_key", "0011", "auth.token_key"},
		{"no database", "database.path", " ", "database.path"},
		{"bad port", "http.port", 70000, "http.port"},
		{"bad log format", "log.format", "xml", "log.format"},
		{"no rate limit", "ratelimit.requests_per_minute", 0, "ratelimit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDatabase_SkipsAuthChecks(t *testing.T) {
	db, err := LoadDatabase(NewViper())
	require.NoError(t, err)
	assert.Equal(t, "data/linkshelf.db", db.Path)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LINKSHELF_LOG_LEVEL=debug\n"), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("LINKSHELF_LOG_LEVEL", "")
	os.Unsetenv("LINKSHELF_LOG_LEVEL")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "debug", os.Getenv("LINKSHELF_LOG_LEVEL"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
