package auth

import (
	"encoding/json"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/linkshelf/internal/model"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

type googleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// NewGoogleProvider signs users in with Google OpenID Connect.
//
// Google only issues a refresh token with access_type=offline, and only on
// the first consent unless prompt=consent forces the screen again.
func NewGoogleProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) TokenProvider {
	p := newOAuthProvider(model.ProviderGoogle, &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}, googleUserInfoURL, opts...)

	p.authOpts = []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce}
	p.decodeProfile = func(body []byte) (*Profile, error) {
		var u googleUser
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, err
		}
		return &Profile{AccountID: u.Sub, Email: u.Email, Name: u.Name, AvatarURL: u.Picture}, nil
	}
	return p
}
