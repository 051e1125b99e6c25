package auth

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/sakif/linkshelf/internal/model"
)

const discordMeURL = "https://discord.com/api/users/@me"

// oauth2 has no Discord package.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:  "https://discord.com/oauth2/authorize",
	TokenURL: "https://discord.com/api/oauth2/token",
}

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"` // hash, empty for the default avatar
}

// NewDiscordProvider signs users in with Discord.
func NewDiscordProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) TokenProvider {
	p := newOAuthProvider(model.ProviderDiscord, &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"identify", "email"},
		Endpoint:     discordEndpoint,
	}, discordMeURL, opts...)

	p.decodeProfile = func(body []byte) (*Profile, error) {
		var u discordUser
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, err
		}
		name := u.GlobalName
		if name == "" {
			name = u.Username
		}
		prof := &Profile{AccountID: u.ID, Email: u.Email, Name: name}
		if u.Avatar != "" {
			prof.AvatarURL = fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
		}
		return prof, nil
	}
	return p
}
