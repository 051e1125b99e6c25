package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// Session is the hydrated view of a signed-in user and the provider they
// used. AccessToken is the opened provider token and never leaves the
// server.
type Session struct {
	User        model.User `json:"user"`
	Provider    string     `json:"provider"`
	AccessToken string     `json:"-"`
	ExpiresAt   *int64     `json:"expiresAt,omitempty"`
	NeedsReauth bool       `json:"needsReauth"`
	Error       string     `json:"error,omitempty"`
}

// RefreshResult reports a refresh attempt. A failed refresh is a normal
// outcome that asks the user to sign in again, so it is a value, not an
// error.
type RefreshResult struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"`
}

// SessionService loads sessions and keeps their provider tokens fresh.
type SessionService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	sealer *auth.Sealer
	logger *slog.Logger
}

func NewSessionService(users repository.UserRepository, tokens *auth.TokenService, sealer *auth.Sealer, logger *slog.Logger) *SessionService {
	return &SessionService{users: users, tokens: tokens, sealer: sealer, logger: logger}
}

// Hydrate loads the session for (email, provider). An expired access token
// is refreshed before Hydrate returns; when that is impossible the session
// comes back with NeedsReauth set instead of an error.
func (s *SessionService) Hydrate(ctx context.Context, email, provider string) (*Session, error) {
	uwp, err := s.users.GetUserWithProvider(ctx, email, provider)
	if err != nil {
		return nil, fail(s.logger, "failed to load session", err, slog.String("provider", provider))
	}

	sess := &Session{
		User:      uwp.User,
		Provider:  provider,
		ExpiresAt: uwp.Provider.ExpiresAt,
	}

	access, err := openToken(s.sealer, uwp.Provider.AccessToken)
	if err != nil {
		s.logger.Warn("stored access token unreadable",
			slog.String("userID", uwp.User.ID), slog.String("error", err.Error()))
		sess.NeedsReauth = true
		sess.Error = "stored credentials are unreadable, please sign in again"
		return sess, nil
	}
	sess.AccessToken = access

	if sess.ExpiresAt == nil || !s.tokens.IsTokenExpired(*sess.ExpiresAt) {
		return sess, nil
	}

	result, fresh := s.refresh(ctx, &uwp.Provider)
	if !result.Success {
		sess.NeedsReauth = true
		sess.Error = result.Error
		return sess, nil
	}
	sess.AccessToken = fresh
	sess.ExpiresAt = result.ExpiresAt
	return sess, nil
}

// RefreshProviderToken forces a refresh of the stored provider token.
func (s *SessionService) RefreshProviderToken(ctx context.Context, email, provider string) RefreshResult {
	uwp, err := s.users.GetUserWithProvider(ctx, email, provider)
	if err != nil {
		err = fail(s.logger, "failed to load session", err, slog.String("provider", provider))
		return RefreshResult{Error: displayMessage(err)}
	}
	result, _ := s.refresh(ctx, &uwp.Provider)
	return result
}

// refresh exchanges the stored refresh token and persists
// {access, refresh ?? previous, expiresAt = now + expiresIn}. It returns
// the new plaintext access token on success.
func (s *SessionService) refresh(ctx context.Context, up *model.UserProvider) (RefreshResult, string) {
	log := s.logger.With(slog.String("userID", up.UserID), slog.String("provider", up.Provider))

	previous, err := openToken(s.sealer, up.RefreshToken)
	if err != nil {
		log.Warn("stored refresh token unreadable", slog.String("error", err.Error()))
		return RefreshResult{Error: "stored credentials are unreadable, please sign in again"}, ""
	}
	if previous == "" {
		return RefreshResult{Error: "no refresh token on file, please sign in again"}, ""
	}

	rt, err := s.tokens.RefreshAccessToken(ctx, up.Provider, previous)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			log.Warn("token refresh rejected",
				slog.Int("status", appErr.Status),
				slog.String("statusText", appErr.StatusText),
			)
		} else {
			log.Error("token refresh failed", slog.String("error", err.Error()))
		}
		return RefreshResult{Error: displayMessage(apperror.Coerce(err))}, ""
	}

	refresh := rt.RefreshToken
	if refresh == "" {
		refresh = previous
	}
	var expiresAt *int64
	if rt.ExpiresIn > 0 {
		v := s.tokens.ExpiresAt(rt.ExpiresIn)
		expiresAt = &v
	}

	sealedAccess, err := s.sealer.Seal(rt.AccessToken)
	if err != nil {
		log.Error("failed to seal access token", slog.String("error", err.Error()))
		return RefreshResult{Error: displayMessage(apperror.Unknown(err))}, ""
	}
	sealedRefresh, err := s.sealer.Seal(refresh)
	if err != nil {
		log.Error("failed to seal refresh token", slog.String("error", err.Error()))
		return RefreshResult{Error: displayMessage(apperror.Unknown(err))}, ""
	}

	if err := s.users.UpdateProviderTokens(ctx, up.ID, sealedAccess, sealedRefresh, expiresAt); err != nil {
		err = fail(log, "failed to store refreshed tokens", err)
		return RefreshResult{Error: displayMessage(err)}, ""
	}

	log.Info("provider token refreshed", slog.Bool("rotated", rt.RefreshToken != ""))
	return RefreshResult{Success: true, ExpiresAt: expiresAt}, rt.AccessToken
}

// displayMessage extracts the user-facing text from an AppError.
func displayMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return apperror.Unknown(err).Message
}
