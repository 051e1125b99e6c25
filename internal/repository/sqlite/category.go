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

var _ repository.CategoryRepository = (*DB)(nil)

const categoryColumns = `c.id, c.user_id, c.parent_id, c.name, c.description, c.color, c.icon,
	c.sort_order, c.level, c.path, c.is_active, c.is_folder, c.created_at, c.updated_at`

func scanCategory(s scanner, c *model.Category) error {
	return s.Scan(
		&c.ID, &c.UserID, &c.ParentID, &c.Name, &c.Description, &c.Color, &c.Icon,
		&c.SortOrder, &c.Level, &c.Path, &c.IsActive, &c.IsFolder, &c.CreatedAt, &c.UpdatedAt,
	)
}

// ListCategories returns the user's active top-level folders ordered by
// (sort_order, created_at).
func (db *DB) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c
		 WHERE c.user_id = ? AND c.is_active = 1 AND c.is_folder = 1
		 ORDER BY c.sort_order ASC, c.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating category rows: %w", err)
	}
	return categories, nil
}

// GetCategory returns apperror.ErrNotFound for missing, inactive and
// foreign categories alike.
func (db *DB) GetCategory(ctx context.Context, id, userID string) (*model.Category, error) {
	return getCategory(ctx, db.conn, id, userID)
}

func getCategory(ctx context.Context, q queryer, id, userID string) (*model.Category, error) {
	var c model.Category
	row := q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories c
		 WHERE c.id = ? AND c.user_id = ? AND c.is_active = 1`,
		id, userID,
	)
	if err := scanCategory(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %s: %w", id, err)
	}
	return &c, nil
}

// CategoryNameTaken reports whether another active folder of the user is
// already called name. excludeID lets an update keep its own name.
func (db *DB) CategoryNameTaken(ctx context.Context, userID, name, excludeID string) (bool, error) {
	var taken bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM categories
		   WHERE user_id = ? AND name = ? AND id != ? AND is_active = 1 AND is_folder = 1
		 )`,
		userID, name, excludeID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking category name: %w", err)
	}
	return taken, nil
}

// CreateCategory appends a folder after the user's last one. The sort order
// is computed inside the same transaction as the insert.
func (db *DB) CreateCategory(ctx context.Context, userID string, in repository.FolderInput) (*model.Category, error) {
	now := db.now()
	id := uuid.NewString()
	c := &model.Category{
		ID:          id,
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		Level:       0,
		Path:        "/" + id,
		IsActive:    true,
		IsFolder:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories
			 WHERE user_id = ? AND is_active = 1 AND is_folder = 1`,
			userID,
		).Scan(&c.SortOrder)
		if err != nil {
			return fmt.Errorf("sqlite: computing category sort order: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO categories
			   (id, user_id, parent_id, name, description, color, icon, sort_order,
			    level, path, is_active, is_folder, created_at, updated_at)
			 VALUES (?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, 1, 1, ?, ?)`,
			c.ID, c.UserID, c.Name, c.Description, c.Color, c.Icon, c.SortOrder,
			c.Level, c.Path, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.DuplicateName("category", in.Name)
			}
			return fmt.Errorf("sqlite: inserting category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory replaces the editable fields of a category.
func (db *DB) UpdateCategory(ctx context.Context, id, userID string, in repository.FolderInput) (*model.Category, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE categories
		 SET name = ?, description = ?, color = ?, icon = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_active = 1`,
		in.Name, in.Description, in.Color, in.Icon, db.now(), id, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.DuplicateName("category", in.Name)
		}
		return nil, fmt.Errorf("sqlite: updating category %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperror.NotFound("category", id)
	}
	return db.GetCategory(ctx, id, userID)
}

// CategoryDeletionStats summarises what DeleteCategory would remove.
func (db *DB) CategoryDeletionStats(ctx context.Context, id, userID string) (*model.CategoryDeletionStats, error) {
	c, err := db.GetCategory(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	genreNames, err := queryStrings(ctx, db.conn,
		`SELECT name FROM genres
		 WHERE category_id = ? AND user_id = ? AND is_active = 1
		 ORDER BY sort_order ASC, created_at ASC`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: collecting genre names for category %s: %w", id, err)
	}

	urlTitles, err := queryStrings(ctx, db.conn,
		`SELECT u.title FROM urls u
		 JOIN url_categories uc ON uc.url_id = u.id
		 WHERE uc.category_id = ? AND uc.user_id = ?
		 ORDER BY u.created_at ASC`,
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: collecting url titles for category %s: %w", id, err)
	}

	return &model.CategoryDeletionStats{
		CategoryName: c.Name,
		GenreCount:   len(genreNames),
		URLCount:     len(urlTitles),
		GenreNames:   genreNames,
		URLTitles:    urlTitles,
	}, nil
}

// DeleteCategory removes a category together with its genres, join rows
// and every URL filed under it. URLs are deleted explicitly first: their
// ids are only reachable through url_categories, which the category delete
// would cascade away.
func (db *DB) DeleteCategory(ctx context.Context, id, userID string) (string, error) {
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getCategory(ctx, tx, id, userID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`DELETE FROM urls WHERE user_id = ? AND id IN (
			   SELECT url_id FROM url_categories WHERE category_id = ? AND user_id = ?
			 )`,
			userID, id, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting urls of category %s: %w", id, err)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("sqlite: deleting category %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return "", deletionError("category", err)
	}
	return id, nil
}

// deletionError lets NotFound through and hides every other failure behind
// apperror.ErrDeletionFailed.
func deletionError(resource string, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return apperror.DeletionFailed(resource, err)
}

// queryStrings collects a single text column. The result is never nil so it
// encodes as [] rather than null.
func queryStrings(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// touch bumps updated_at on a parent row after a child changed.
func touch(ctx context.Context, q queryer, table, id string, at time.Time) error {
	switch table {
	case "categories", "genres":
	default:
		return fmt.Errorf("sqlite: touch: unexpected table %q", table)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE `+table+` SET updated_at = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("sqlite: touching %s %s: %w", table, id, err)
	}
	return nil
}
