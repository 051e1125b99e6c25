package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// IdentityService turns a completed OAuth exchange into a user row and a
// linked provider row. Provider tokens are sealed here, so the repository
// only ever stores ciphertext.
type IdentityService struct {
	users  repository.UserRepository
	sealer *auth.Sealer
	logger *slog.Logger
}

func NewIdentityService(users repository.UserRepository, sealer *auth.Sealer, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, sealer: sealer, logger: logger}
}

// CreateUser checks for an existing account first so a duplicate email
// gets a readable message instead of a constraint error.
func (s *IdentityService) CreateUser(ctx context.Context, email, name, avatarURL string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	_, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.DuplicateEmail(email)
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fail(s.logger, "failed to look up user", err)
	}

	u, err := s.users.CreateUser(ctx, email, optional(name), optional(avatarURL))
	if err != nil {
		return nil, fail(s.logger, "failed to create user", err)
	}
	s.logger.Info("user created", slog.String("userID", u.ID))
	return u, nil
}

// SignIn finds or creates the user behind in.Profile, refreshes their
// name and avatar when the provider reports new ones, and stores the
// provider tokens.
func (s *IdentityService) SignIn(ctx context.Context, provider string, in *auth.SignIn) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Profile.Email))

	user, err := s.resolveUser(ctx, provider, email, in.Profile)
	if err != nil {
		return nil, err
	}
	if profileChanged(user, in.Profile) {
		updated, err := s.users.UpdateUser(ctx, user.ID, optional(in.Profile.Name), optional(in.Profile.AvatarURL))
		if err != nil {
			return nil, fail(s.logger, "failed to update user", err, slog.String("userID", user.ID))
		}
		user = updated
	}

	access, err := s.sealer.Seal(in.AccessToken)
	if err != nil {
		return nil, fail(s.logger, "failed to seal access token", err)
	}
	var refresh *string
	if in.RefreshToken != "" {
		sealed, err := s.sealer.Seal(in.RefreshToken)
		if err != nil {
			return nil, fail(s.logger, "failed to seal refresh token", err)
		}
		refresh = &sealed
	}

	_, err = s.users.UpsertUserProvider(ctx, repository.UpsertProviderParams{
		UserID:            user.ID,
		Provider:          provider,
		ProviderAccountID: in.Profile.AccountID,
		AccessToken:       optional(access),
		RefreshToken:      refresh,
		ExpiresAt:         in.ExpiresAt,
	})
	if err != nil {
		return nil, fail(s.logger, "failed to link provider", err,
			slog.String("userID", user.ID), slog.String("provider", provider))
	}

	s.logger.Info("user signed in",
		slog.String("userID", user.ID),
		slog.String("provider", provider),
	)
	return user, nil
}

// resolveUser prefers the account already linked to this provider account,
// so an address change at the provider keeps the same bookmarks. Without a
// link the email decides, which attaches a second provider to an existing
// account.
func (s *IdentityService) resolveUser(ctx context.Context, provider, email string, p auth.Profile) (*model.User, error) {
	link, err := s.users.FindProviderLink(ctx, provider, p.AccountID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return s.userByEmail(ctx, provider, email, p)
	case err != nil:
		return nil, fail(s.logger, "failed to look up provider link", err, slog.String("provider", provider))
	}

	user, err := s.users.GetUserByID(ctx, link.UserID)
	if err != nil {
		return nil, fail(s.logger, "failed to load linked user", err, slog.String("userID", link.UserID))
	}
	if user.Email == email {
		return user, nil
	}

	updated, err := s.users.UpdateUserEmail(ctx, user.ID, email)
	switch {
	case err == nil:
		s.logger.Info("user email changed",
			slog.String("userID", user.ID),
			slog.String("provider", provider),
		)
		return updated, nil
	case errors.Is(err, apperror.ErrConflict):
		// Another account owns the new address; the link moves to it.
		return s.userByEmail(ctx, provider, email, p)
	default:
		return nil, fail(s.logger, "failed to update user email", err, slog.String("userID", user.ID))
	}
}

func (s *IdentityService) userByEmail(ctx context.Context, provider, email string, p auth.Profile) (*model.User, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return s.CreateUser(ctx, email, p.Name, p.AvatarURL)
	case err != nil:
		return nil, fail(s.logger, "failed to look up user", err, slog.String("provider", provider))
	}
	return user, nil
}

// Me returns the signed-in user's profile.
func (s *IdentityService) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fail(s.logger, "failed to load user", err, slog.String("userID", userID))
	}
	return u, nil
}

// profileChanged is true when the provider reports a name or avatar that
// differs from what is stored. Empty provider values never erase data.
func profileChanged(u *model.User, p auth.Profile) bool {
	return (p.Name != "" && p.Name != u.Name) || (p.AvatarURL != "" && p.AvatarURL != u.AvatarURL)
}

// optional maps "" to nil for COALESCE-style repository parameters.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// openToken is a small wrapper so callers get a uniform error.
func openToken(sealer *auth.Sealer, sealed string) (string, error) {
	plain, err := sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("service: opening stored token: %w", err)
	}
	return plain, nil
}
