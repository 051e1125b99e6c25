package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
)

// newTestDB returns a migrated in-memory database whose clock advances one
// second per call, so rows created one after another sort predictably.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return db
}

func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), email, nil, nil)
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestCategory(t *testing.T, db *DB, userID, name string) *model.Category {
	t.Helper()
	c, err := db.CreateCategory(context.Background(), userID, repository.FolderInput{Name: name})
	if err != nil {
		t.Fatalf("failed to create test category %q: %v", name, err)
	}
	return c
}

func createTestGenre(t *testing.T, db *DB, userID, categoryID, name string) *model.Genre {
	t.Helper()
	g, err := db.CreateGenre(context.Background(), userID, categoryID, repository.FolderInput{Name: name})
	if err != nil {
		t.Fatalf("failed to create test genre %q: %v", name, err)
	}
	return g
}

func createTestURL(t *testing.T, db *DB, userID, genreID, title, rawURL string) *model.URL {
	t.Helper()
	u, err := db.CreateURL(context.Background(), repository.CreateURLParams{
		UserID:  userID,
		GenreID: genreID,
		Title:   title,
		URL:     rawURL,
	})
	if err != nil {
		t.Fatalf("failed to create test url %q: %v", rawURL, err)
	}
	return u
}

// countRows runs a COUNT(*) query and fails the test on error.
func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// failDeletesOn installs a trigger that aborts any DELETE on table, so a
// cascade fails after its earlier statements already ran.
func failDeletesOn(t *testing.T, db *DB, table string) {
	t.Helper()
	_, err := db.conn.ExecContext(context.Background(),
		`CREATE TRIGGER fail_delete_`+table+` BEFORE DELETE ON `+table+`
		 BEGIN SELECT RAISE(ABORT, 'delete blocked'); END`)
	if err != nil {
		t.Fatalf("failed to install trigger on %s: %v", table, err)
	}
}
