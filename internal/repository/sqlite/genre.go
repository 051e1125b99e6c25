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

var _ repository.GenreRepository = (*DB)(nil)

// genreSelect joins the parent category so callers can show its name.
// Ownership is still checked on g.user_id.
const genreSelect = `SELECT g.id, g.user_id, g.category_id, c.name, g.name, g.description,
	g.color, g.icon, g.sort_order, g.is_active, g.created_at, g.updated_at
	FROM genres g
	JOIN categories c ON c.id = g.category_id`

func scanGenre(s scanner, g *model.Genre) error {
	return s.Scan(
		&g.ID, &g.UserID, &g.CategoryID, &g.CategoryName, &g.Name, &g.Description,
		&g.Color, &g.Icon, &g.SortOrder, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
	)
}

// ListGenres returns the active genres of a category. The category itself
// must be live and owned by userID, otherwise apperror.ErrNotFound.
func (db *DB) ListGenres(ctx context.Context, categoryID, userID string) ([]model.Genre, error) {
	if _, err := db.GetCategory(ctx, categoryID, userID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		genreSelect+`
		 WHERE g.category_id = ? AND g.user_id = ? AND g.is_active = 1
		 ORDER BY g.sort_order ASC, g.created_at ASC`,
		categoryID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing genres of category %s: %w", categoryID, err)
	}
	defer rows.Close()

	genres := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := scanGenre(rows, &g); err != nil {
			return nil, fmt.Errorf("sqlite: scanning genre row: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating genre rows: %w", err)
	}
	return genres, nil
}

func (db *DB) GetGenre(ctx context.Context, id, userID string) (*model.Genre, error) {
	return getGenre(ctx, db.conn, id, userID)
}

func getGenre(ctx context.Context, q queryer, id, userID string) (*model.Genre, error) {
	var g model.Genre
	row := q.QueryRowContext(ctx,
		genreSelect+` WHERE g.id = ? AND g.user_id = ? AND g.is_active = 1`,
		id, userID,
	)
	if err := scanGenre(row, &g); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("genre", id)
		}
		return nil, fmt.Errorf("sqlite: getting genre %s: %w", id, err)
	}
	return &g, nil
}

// GenreNameTaken is scoped to one category: the same name may appear under
// different categories of the same user.
func (db *DB) GenreNameTaken(ctx context.Context, userID, categoryID, name, excludeID string) (bool, error) {
	var taken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM genres
		   WHERE user_id = ? AND category_id = ? AND name = ? AND id != ? AND is_active = 1
		 )`,
		userID, categoryID, name, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking genre name: %w", err)
	}
	return taken, nil
}

// CreateGenre adds a genre at the end of its category and bumps the
// category's updated_at in the same transaction.
func (db *DB) CreateGenre(ctx context.Context, userID, categoryID string, in repository.FolderInput) (*model.Genre, error) {
	now := db.now()
	g := &model.Genre{
		ID:          uuid.NewString(),
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		parent, err := getCategory(ctx, tx, categoryID, userID)
		if err != nil {
			return err
		}
		g.CategoryName = parent.Name

		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM genres
			 WHERE category_id = ? AND user_id = ? AND is_active = 1`,
			categoryID, userID,
		).Scan(&g.SortOrder)
		if err != nil {
			return fmt.Errorf("sqlite: computing genre sort order: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO genres
			   (id, user_id, category_id, name, description, color, icon, sort_order,
			    is_active, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			g.ID, g.UserID, g.CategoryID, g.Name, g.Description, g.Color, g.Icon,
			g.SortOrder, g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.DuplicateName("genre", in.Name)
			}
			return fmt.Errorf("sqlite: inserting genre: %w", err)
		}

		return touch(ctx, tx, "categories", categoryID, now)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (db *DB) UpdateGenre(ctx context.Context, id, userID string, in repository.FolderInput) (*model.Genre, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE genres
		 SET name = ?, description = ?, color = ?, icon = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_active = 1`,
		in.Name, in.Description, in.Color, in.Icon, db.now(), id, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.DuplicateName("genre", in.Name)
		}
		return nil, fmt.Errorf("sqlite: updating genre %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("genre", id)
	}
	return db.GetGenre(ctx, id, userID)
}

// GenreDeletionStats summarises what DeleteGenre would remove.
func (db *DB) GenreDeletionStats(ctx context.Context, id, userID string) (*model.GenreDeletionStats, error) {
	g, err := db.GetGenre(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	urlTitles, err := queryStrings(ctx, db.conn,
		`SELECT u.title FROM urls u
		 JOIN url_categories uc ON uc.url_id = u.id
		 WHERE uc.genre_id = ? AND uc.user_id = ?
		 ORDER BY u.created_at ASC`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: collecting url titles for genre %s: %w", id, err)
	}

	return &model.GenreDeletionStats{
		GenreName:    g.Name,
		CategoryName: g.CategoryName,
		URLCount:     len(urlTitles),
		URLTitles:    urlTitles,
	}, nil
}

// DeleteGenre removes a genre and every URL filed under it, in the same
// order as DeleteCategory.
func (db *DB) DeleteGenre(ctx context.Context, id, userID string) (string, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getGenre(ctx, tx, id, userID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM urls WHERE user_id = ? AND id IN (
			   SELECT url_id FROM url_categories WHERE genre_id = ? AND user_id = ?
			 )`,
			userID, id, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting urls of genre %s: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM genres WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting genre %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", deletionError("genre", err)
	}
	return id, nil
}
