package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `u.id, u.email, u.name, u.avatar_url, u.created_at, u.updated_at`

const providerColumns = `p.id, p.user_id, p.provider, p.provider_id, p.access_token,
	p.refresh_token, p.expires_at, p.created_at, p.updated_at`

// scanner is the common subset of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner, u *model.User, extra ...any) error {
	var name, avatar sql.NullString
	dest := append([]any{&u.ID, &u.Email, &name, &avatar, &u.CreatedAt, &u.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	u.Name = name.String
	u.AvatarURL = avatar.String
	return nil
}

// providerDest returns scan destinations for providerColumns plus a finish
// func that copies the nullable columns into p once Scan succeeded.
func providerDest(p *model.UserProvider) ([]any, func()) {
	var access, refresh sql.NullString
	var expires sql.NullInt64
	dest := []any{&p.ID, &p.UserID, &p.Provider, &p.ProviderAccountID,
		&access, &refresh, &expires, &p.CreatedAt, &p.UpdatedAt}
	return dest, func() {
		p.AccessToken = access.String
		p.RefreshToken = refresh.String
		p.ExpiresAt = nil
		if expires.Valid {
			v := expires.Int64
			p.ExpiresAt = &v
		}
	}
}

// FindUserByEmail returns apperror.ErrNotFound when no account uses email.
func (db *DB) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = ?`, email)
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: finding user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by internal ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id)
	if err := scanUser(row, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return &u, nil
}

// CreateUser inserts a new account. A second account with the same email is
// rejected by the unique index and reported as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, email string, name, avatarURL *string) (*model.User, error) {
	now := db.now()
	u := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name != nil {
		u.Name = *name
	}
	if avatarURL != nil {
		u.AvatarURL = *avatarURL
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, name, avatarURL, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.DuplicateEmail(email)
		}
		return nil, fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return u, nil
}

// UpdateUser overwrites only the fields that are non-nil.
func (db *DB) UpdateUser(ctx context.Context, id string, name, avatarURL *string) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = COALESCE(?, name),
		     avatar_url = COALESCE(?, avatar_url),
		     updated_at = ?
		 WHERE id = ?`,
		name, avatarURL, db.now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return db.GetUserByID(ctx, id)
}

// UpdateUserEmail changes the address an account signs in with. Another
// account already using email is reported as apperror.ErrConflict.
func (db *DB) UpdateUserEmail(ctx context.Context, id, email string) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		email, db.now(), id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.DuplicateEmail(email)
		}
		return nil, fmt.Errorf("sqlite: updating email of user %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("user", id)
	}
	return db.GetUserByID(ctx, id)
}

// FindProviderLink returns the row linking a provider account to a user.
func (db *DB) FindProviderLink(ctx context.Context, provider, providerAccountID string) (*model.UserProvider, error) {
	var up model.UserProvider
	dest, finish := providerDest(&up)
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM user_providers p
		 WHERE p.provider = ? AND p.provider_id = ?`,
		provider, providerAccountID,
	).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(provider+" link", providerAccountID)
		}
		return nil, fmt.Errorf("sqlite: finding %s link: %w", provider, err)
	}
	finish()
	return &up, nil
}

// UpsertUserProvider links a provider account to a user. A repeat sign-in
// with the same (provider, provider account) updates the token fields in
// place and moves the link to p.UserID. The stored refresh token survives
// when p.RefreshToken is nil.
func (db *DB) UpsertUserProvider(ctx context.Context, p repository.UpsertProviderParams) (*model.UserProvider, error) {
	now := db.now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_providers
		   (id, user_id, provider, provider_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_id) DO UPDATE SET
		   user_id       = excluded.user_id,
		   access_token  = excluded.access_token,
		   refresh_token = COALESCE(excluded.refresh_token, user_providers.refresh_token),
		   expires_at    = excluded.expires_at,
		   updated_at    = excluded.updated_at`,
		uuid.NewString(), p.UserID, p.Provider, p.ProviderAccountID,
		p.AccessToken, p.RefreshToken, p.ExpiresAt, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting %s provider for user %s: %w", p.Provider, p.UserID, err)
	}

	return db.FindProviderLink(ctx, p.Provider, p.ProviderAccountID)
}

// GetUserWithProvider loads a user and one linked provider in a single
// join. It is what session hydration runs on every request.
func (db *DB) GetUserWithProvider(ctx context.Context, email, provider string) (*model.UserWithProvider, error) {
	var out model.UserWithProvider
	pdest, finish := providerDest(&out.Provider)

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+`, `+providerColumns+`
		 FROM users u
		 JOIN user_providers p ON p.user_id = u.id
		 WHERE u.email = ? AND p.provider = ?
		 ORDER BY p.updated_at DESC
		 LIMIT 1`,
		email, provider,
	)
	if err := scanUser(row, &out.User, pdest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(provider+" account", email)
		}
		return nil, fmt.Errorf("sqlite: getting user with %s provider: %w", provider, err)
	}
	finish()
	return &out, nil
}

// UpdateProviderTokens stores the result of a token refresh. id is the
// user_providers row id.
func (db *DB) UpdateProviderTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE user_providers
		 SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		accessToken, refreshToken, expiresAt, db.now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating provider tokens %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("provider", id)
	}
	return nil
}
