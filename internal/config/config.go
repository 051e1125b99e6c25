// Package config loads runtime settings from flags, environment variables,
// an optional config file and a .env file, in that order of precedence.
//
// Every key can be set through the environment with the LINKSHELF_ prefix,
// dots replaced by underscores: database.path → LINKSHELF_DATABASE_PATH.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix = "LINKSHELF"

	defaultPort             = 8080
	defaultDatabasePath     = "data/linkshelf.db"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 28
	defaultSessionTTL       = 7 * 24 * time.Hour
	defaultRequestsPerMin   = 120
	defaultMetadataTimeout  = 10 * time.Second
	defaultShutdownDuration = 30 * time.Second
)

// Providers that may be configured under oauth.<name>.
var providerNames = []string{"google", "github", "discord"}

type Config struct {
	HTTP      HTTP
	Database  Database
	Log       Log
	Auth      Auth
	OAuth     map[string]OAuthClient // keyed by provider name, configured ones only
	RateLimit RateLimit
	Metadata  Metadata
}

type HTTP struct {
	Port            int
	BaseURL         string // public origin, used for OAuth callback URLs
	ShutdownTimeout time.Duration
}

type Database struct {
	Path string
}

type Log struct {
	Level      string
	Format     string // "text" or "json"
	File       string // empty disables the rotated file
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Auth struct {
	JWTSecret  string
	TokenKey   string // 64 hex chars, seals provider tokens at rest
	SessionTTL time.Duration
}

type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type RateLimit struct {
	RequestsPerMinute int
}

type Metadata struct {
	Timeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	v := viper.New()
	ApplyDefaults(v)
	return v
}

// ApplyDefaults configures defaults and env bindings on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.port", defaultPort)
	v.SetDefault("http.base_url", "")
	v.SetDefault("http.shutdown_timeout", defaultShutdownDuration)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", defaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", defaultLogMaxBackups)
	v.SetDefault("log.max_age_days", defaultLogMaxAgeDays)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_key", "")
	v.SetDefault("auth.session_ttl", defaultSessionTTL)
	v.SetDefault("ratelimit.requests_per_minute", defaultRequestsPerMin)
	v.SetDefault("metadata.timeout", defaultMetadataTimeout)

	// AutomaticEnv only answers for keys viper already knows about.
	for _, name := range providerNames {
		v.SetDefault("oauth."+name+".client_id", "")
		v.SetDefault("oauth."+name+".client_secret", "")
	}
}

// LoadDotEnv reads .env files into the process environment. Variables that
// are already set win, and a missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: loading %s: %w", f, err)
		}
	}
	return nil
}

// Load parses and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		HTTP: HTTP{
			Port:            v.GetInt("http.port"),
			BaseURL:         strings.TrimRight(v.GetString("http.base_url"), "/"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Database: Database{Path: v.GetString("database.path")},
		Log: Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Auth: Auth{
			JWTSecret:  v.GetString("auth.jwt_secret"),
			TokenKey:   v.GetString("auth.token_key"),
			SessionTTL: v.GetDuration("auth.session_ttl"),
		},
		OAuth:     make(map[string]OAuthClient),
		RateLimit: RateLimit{RequestsPerMinute: v.GetInt("ratelimit.requests_per_minute")},
		Metadata:  Metadata{Timeout: v.GetDuration("metadata.timeout")},
	}

	for _, name := range providerNames {
		client := OAuthClient{
			ClientID:     strings.TrimSpace(v.GetString("oauth." + name + ".client_id")),
			ClientSecret: strings.TrimSpace(v.GetString("oauth." + name + ".client_secret")),
		}
		if client.ClientID != "" && client.ClientSecret != "" {
			cfg.OAuth[name] = client
		}
	}

	if cfg.HTTP.BaseURL == "" {
		cfg.HTTP.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase is the subset the migrate command needs; it skips the auth
// checks so migrations can run before secrets are provisioned.
func LoadDatabase(v *viper.Viper) (Database, error) {
	db := Database{Path: v.GetString("database.path")}
	if strings.TrimSpace(db.Path) == "" {
		return Database{}, errors.New("config: database.path is required")
	}
	return db, nil
}

func (c Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: http.port %d is out of range", c.HTTP.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("config: database.path is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return errors.New("config: auth.jwt_secret must be at least 16 characters")
	}
	key, err := hex.DecodeString(c.Auth.TokenKey)
	if err != nil || len(key) != 32 {
		return errors.New("config: auth.token_key must be 64 hex characters (openssl rand -hex 32)")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("config: ratelimit.requests_per_minute must be positive")
	}
	return nil
}

// CallbackURL is the redirect URI registered with provider.
func (c Config) CallbackURL(provider string) string {
	return c.HTTP.BaseURL + "/auth/" + provider + "/callback"
}
