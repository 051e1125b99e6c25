package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

var _ repository.URLRepository = (*DB)(nil)

// A URL belongs to its genre only through url_categories, so every read
// goes through the join.
const urlSelect = `SELECT u.id, u.user_id, uc.genre_id, uc.category_id, u.title, u.url,
	u.description, u.favicon_url, u.is_public, u.view_count, u.created_at, u.updated_at,
	u.last_accessed_at
	FROM urls u
	JOIN url_categories uc ON uc.url_id = u.id`

func scanURL(s scanner, u *model.URL) error {
	var lastAccessed sql.NullTime
	err := s.Scan(
		&u.ID, &u.UserID, &u.GenreID, &u.CategoryID, &u.Title, &u.URL,
		&u.Description, &u.FaviconURL, &u.IsPublic, &u.ViewCount, &u.CreatedAt, &u.UpdatedAt,
		&lastAccessed,
	)
	if err != nil {
		return err
	}
	u.LastAccessedAt = nil
	if lastAccessed.Valid {
		t := lastAccessed.Time
		u.LastAccessedAt = &t
	}
	return nil
}

// CreateURL saves a bookmark into a genre. The URL row, its join row and
// the updated_at bumps on genre and category commit together.
func (db *DB) CreateURL(ctx context.Context, p repository.CreateURLParams) (*model.URL, error) {
	now := db.now()
	u := &model.URL{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		GenreID:     p.GenreID,
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		FaviconURL:  p.FaviconURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT category_id FROM genres WHERE id = ? AND user_id = ? AND is_active = 1`,
			p.GenreID, p.UserID,
		).Scan(&u.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("genre", p.GenreID)
			}
			return fmt.Errorf("sqlite: resolving category of genre %s: %w", p.GenreID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO urls
			   (id, user_id, title, url, description, favicon_url, is_public, view_count,
			    created_at, updated_at, last_accessed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, NULL)`,
			u.ID, u.UserID, u.Title, u.URL, u.Description, u.FaviconURL,
			boolToInt(u.IsPublic), u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.DuplicateURL(p.URL)
			}
			return fmt.Errorf("sqlite: inserting url: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO url_categories (id, url_id, category_id, genre_id, user_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), u.ID, u.CategoryID, u.GenreID, u.UserID, now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: linking url %s to genre %s: %w", u.ID, u.GenreID, err)
		}

		if err := touch(ctx, tx, "genres", u.GenreID, now); err != nil {
			return err
		}
		return touch(ctx, tx, "categories", u.CategoryID, now)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListURLs returns a genre's bookmarks, newest first. A deleted or foreign
// genre yields apperror.ErrNotFound rather than an empty list.
func (db *DB) ListURLs(ctx context.Context, genreID, userID string) ([]model.URL, error) {
	if _, err := db.GetGenre(ctx, genreID, userID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		urlSelect+`
		 WHERE uc.genre_id = ? AND uc.user_id = ?
		 ORDER BY u.created_at DESC`,
		genreID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing urls of genre %s: %w", genreID, err)
	}
	defer rows.Close()

	urls := []model.URL{}
	for rows.Next() {
		var u model.URL
		if err := scanURL(rows, &u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning url row: %w", err)
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating url rows: %w", err)
	}
	return urls, nil
}

func getURL(ctx context.Context, q queryer, id, userID string) (*model.URL, error) {
	var u model.URL
	row := q.QueryRowContext(ctx, urlSelect+` WHERE u.id = ? AND u.user_id = ?`, id, userID)
	if err := scanURL(row, &u); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("url", id)
		}
		return nil, fmt.Errorf("sqlite: getting url %s: %w", id, err)
	}
	return &u, nil
}

// DeleteURL removes one bookmark and reports the genre and category it
// lived in so callers can invalidate both.
func (db *DB) DeleteURL(ctx context.Context, id, userID string) (*model.URLDeletion, error) {
	del := &model.URLDeletion{URLID: id}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT genre_id, category_id FROM url_categories WHERE url_id = ? AND user_id = ?`,
			id, userID,
		).Scan(&del.GenreID, &del.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFound("url", id)
			}
			return fmt.Errorf("sqlite: looking up url %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM urls WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("sqlite: deleting url %s: %w", id, err)
		}

		now := db.now()
		if err := touch(ctx, tx, "genres", del.GenreID, now); err != nil {
			return err
		}
		return touch(ctx, tx, "categories", del.CategoryID, now)
	})
	if err != nil {
		return nil, err
	}
	return del, nil
}

// RecordVisit counts one open of a bookmark.
func (db *DB) RecordVisit(ctx context.Context, id, userID string, at time.Time) (*model.URL, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE urls SET view_count = view_count + 1, last_accessed_at = ?
		 WHERE id = ? AND user_id = ?`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recording visit to url %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("url", id)
	}
	return getURL(ctx, db.conn, id, userID)
}
