// Package model defines the data structures used throughout the application.
package model

import "time"

// Provider names accepted for sign-in and token refresh.
const (
	ProviderGoogle  = "google"
	ProviderGitHub  = "github"
	ProviderDiscord = "discord"
)

// User is an account created on the first successful OAuth sign-in.
//
// Email is the stable identity across providers: signing in with Google and
// later with GitHub using the same address lands on the same User. Name and
// AvatarURL come from whichever provider last reported a newer value.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserProvider holds one provider's OAuth credentials for a user.
//
// (Provider, ProviderAccountID) is unique, so a provider account maps to
// exactly one row. The tokens are never serialized to JSON; in the database
// they are stored sealed (see auth.Sealer).
type UserProvider struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"providerAccountId"`
	AccessToken       string    `json:"-"`
	RefreshToken      string    `json:"-"`
	ExpiresAt         *int64    `json:"expiresAt,omitempty"` // unix seconds
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserWithProvider is the joined row used to hydrate a session.
type UserWithProvider struct {
	User     User         `json:"user"`
	Provider UserProvider `json:"provider"`
}
