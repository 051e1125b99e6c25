package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository/sqlite"
)

// urlFixture is a user with one category and one genre to file into.
type urlFixture struct {
	db       *sqlite.DB
	svc      *URLService
	user     *model.User
	category *model.Category
	genre    *model.Genre
}

func newURLFixture(t *testing.T) urlFixture {
	t.Helper()
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "reader@example.com")

	c, err := NewCategoryService(db, testLogger()).Create(ctx, u.ID, CategoryInput{Name: "Programming"})
	require.NoError(t, err)
	g, err := NewGenreService(db, testLogger()).Create(ctx, u.ID, GenreInput{CategoryID: c.ID, Name: "Rust"})
	require.NoError(t, err)

	return urlFixture{db: db, svc: NewURLService(db, testLogger()), user: u, category: c, genre: g}
}

func TestURLCreate_Validation(t *testing.T) {
	f := newURLFixture(t)

	valid := URLInput{UserID: f.user.ID, GenreID: f.genre.ID, Title: "Rust Book", URL: "https://doc.rust-lang.org/book/"}

	tests := []struct {
		name      string
		mutate    func(in *URLInput)
		wantField string
	}{
		{"missing title", func(in *URLInput) { in.Title = "  " }, "title"},
		{"genre not a uuid", func(in *URLInput) { in.GenreID = "genre-1" }, "genreId"},
		{"user not a uuid", func(in *URLInput) { in.UserID = "42" }, "userId"},
		{"relative url", func(in *URLInput) { in.URL = "/book" }, "url"},
		{"ftp url", func(in *URLInput) { in.URL = "ftp://example.com/file" }, "url"},
		{"bad favicon", func(in *URLInput) { in.FaviconURL = "favicon.ico" }, "faviconUrl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), in)
			require.ErrorIs(t, err, apperror.ErrValidation)
			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestURLCreate(t *testing.T) {
	f := newURLFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, URLInput{
		UserID:  f.user.ID,
		GenreID: f.genre.ID,
		Title:   "Rust Book",
		URL:     "https://doc.rust-lang.org/book/",
	})
	require.NoError(t, err)
	assert.Equal(t, f.genre.ID, u.GenreID)
	assert.Equal(t, f.category.ID, u.CategoryID)

	_, err = f.svc.Create(ctx, URLInput{
		UserID:  f.user.ID,
		GenreID: f.genre.ID,
		Title:   "Same book again",
		URL:     "https://doc.rust-lang.org/book/",
	})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeDuplicateURL, appErr.Code)

	list, err := f.svc.ListByGenre(ctx, f.genre.ID, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestURLCreate_UnknownGenre(t *testing.T) {
	f := newURLFixture(t)

	_, err := f.svc.Create(context.Background(), URLInput{
		UserID:  f.user.ID,
		GenreID: "0b5c7a3e-4d1f-4c2a-9e8b-1f2a3b4c5d6e",
		Title:   "Orphan",
		URL:     "https://example.com",
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestURLDelete(t *testing.T) {
	f := newURLFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, URLInput{UserID: f.user.ID, GenreID: f.genre.ID, Title: "Crates", URL: "https://crates.io"})
	require.NoError(t, err)

	del, err := f.svc.Delete(ctx, u.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.genre.ID, del.GenreID)
	assert.Equal(t, f.category.ID, del.CategoryID)

	_, err = f.svc.Delete(ctx, u.ID, f.user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestURLRecordVisit(t *testing.T) {
	f := newURLFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, URLInput{UserID: f.user.ID, GenreID: f.genre.ID, Title: "Docs", URL: "https://docs.rs"})
	require.NoError(t, err)
	assert.Zero(t, u.ViewCount)

	visited, err := f.svc.RecordVisit(ctx, u.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, visited.ViewCount)
	assert.NotNil(t, visited.LastAccessedAt)
}

// The full lifecycle: file a bookmark, then delete the category above it.
func TestCategoryDelete_CascadesToBookmarks(t *testing.T) {
	f := newURLFixture(t)
	ctx := context.Background()
	categories := NewCategoryService(f.db, testLogger())

	_, err := f.svc.Create(ctx, URLInput{UserID: f.user.ID, GenreID: f.genre.ID, Title: "Rust Book", URL: "https://doc.rust-lang.org/book/"})
	require.NoError(t, err)

	stats, err := categories.DeletionStats(ctx, f.category.ID, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GenreCount)
	assert.Equal(t, 1, stats.URLCount)
	assert.Equal(t, []string{"Rust Book"}, stats.URLTitles)

	_, err = categories.Delete(ctx, f.category.ID, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.ListByGenre(ctx, f.genre.ID, f.user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The URL is free to be saved again somewhere else.
	c, err := categories.Create(ctx, f.user.ID, CategoryInput{Name: "Reading"})
	require.NoError(t, err)
	g, err := NewGenreService(f.db, testLogger()).Create(ctx, f.user.ID, GenreInput{CategoryID: c.ID, Name: "Books"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, URLInput{UserID: f.user.ID, GenreID: g.ID, Title: "Rust Book", URL: "https://doc.rust-lang.org/book/"})
	assert.NoError(t, err)
}
