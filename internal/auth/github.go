package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/linkshelf/internal/model"
)

const githubUserURL = "https://api.github.com/user"

// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"` // empty when hidden in GitHub settings
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// NewGitHubProvider signs users in with a GitHub OAuth App.
//
// Scopes:
//   - "read:user"  public profile (id, login, avatar)
//   - "user:email" the email list, needed when the primary email is private
func NewGitHubProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) TokenProvider {
	p := newOAuthProvider(model.ProviderGitHub, &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}, githubUserURL, opts...)

	p.decodeProfile = func(body []byte) (*Profile, error) {
		var u githubUser
		if err := json.Unmarshal(body, &u); err != nil {
			return nil, err
		}
		if u.ID == 0 {
			return nil, fmt.Errorf("GitHub returned an invalid user (ID = 0)")
		}
		name := u.Name
		if name == "" {
			name = u.Login
		}
		return &Profile{
			AccountID: strconv.FormatInt(u.ID, 10),
			Email:     u.Email,
			Name:      name,
			AvatarURL: u.AvatarURL,
		}, nil
	}

	// /user/emails sits next to /user, which keeps test servers simple.
	emailsURL := p.profileURL + "/emails"
	p.completeProfile = func(ctx context.Context, client *http.Client, prof *Profile) error {
		if prof.Email != "" {
			return nil
		}
		email, err := primaryGitHubEmail(ctx, client, emailsURL)
		if err != nil {
			return err
		}
		prof.Email = email
		return nil
	}
	return p
}

func primaryGitHubEmail(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("auth: building GitHub emails request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: calling GitHub emails API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: GitHub emails API returned status %d", resp.StatusCode)
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("auth: decoding GitHub emails: %w", err)
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	return "", fmt.Errorf("auth: GitHub account has no verified primary email")
}
