package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/apperror"
	"github.com/sakif/linkshelf/internal/model"
	"github.com/sakif/linkshelf/internal/repository"
	"github.com/sakif/linkshelf/internal/repository/sqlite"
)

func newTestCategoryService(t *testing.T) (*CategoryService, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	return NewCategoryService(db, testLogger()), db
}

func TestCategoryCreate_Validation(t *testing.T) {
	svc, db := newTestCategoryService(t)
	u := newTestUser(t, db, "u1@example.com")

	tests := []struct {
		name      string
		input     CategoryInput
		wantField string
		wantMsg   string
	}{
		{"empty name", CategoryInput{Name: "   "}, "name", "name is required"},
		{"long name", CategoryInput{Name: strings.Repeat("a", 101)}, "name", "name must be 100 characters or less"},
		{"long description", CategoryInput{Name: "ok", Description: strings.Repeat("d", 501)}, "description", "description must be 500 characters or less"},
		{"short color", CategoryInput{Name: "ok", Color: "#FFF"}, "color", "color must be a hex color like #1A2B3C"},
		{"named color", CategoryInput{Name: "ok", Color: "red"}, "color", "color must be a hex color like #1A2B3C"},
		{"long icon", CategoryInput{Name: "ok", Icon: strings.Repeat("i", 51)}, "icon", "icon must be 50 characters or less"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), u.ID, tt.input)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}

	list, err := svc.List(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, list, "invalid input must not reach storage")
}

func TestCategoryCreate(t *testing.T) {
	svc, db := newTestCategoryService(t)
	u := newTestUser(t, db, "u1@example.com")

	c, err := svc.Create(context.Background(), u.ID, CategoryInput{
		Name:  "  Work  ",
		Color: "#a1B2c3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Work", c.Name)
	assert.Equal(t, "#a1B2c3", c.Color)
	assert.Equal(t, 1, c.SortOrder)
}

func TestCategoryCreate_DuplicateName(t *testing.T) {
	svc, db := newTestCategoryService(t)
	ctx := context.Background()
	u1 := newTestUser(t, db, "u1@example.com")
	u2 := newTestUser(t, db, "u2@example.com")

	_, err := svc.Create(ctx, u1.ID, CategoryInput{Name: "Work"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, u1.ID, CategoryInput{Name: "Work"})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeDuplicateName, appErr.Code)

	_, err = svc.Create(ctx, u2.ID, CategoryInput{Name: "Work"})
	assert.NoError(t, err, "names are unique per user only")
}

// blindCategoryRepo never reports a name as taken, as if two requests raced
// past the check.
type blindCategoryRepo struct {
	*sqlite.DB
}

func (blindCategoryRepo) CategoryNameTaken(context.Context, string, string, string) (bool, error) {
	return false, nil
}

func TestCategoryCreate_StorageGuardsRace(t *testing.T) {
	db := newTestStore(t)
	svc := NewCategoryService(blindCategoryRepo{db}, testLogger())
	u := newTestUser(t, db, "u1@example.com")
	ctx := context.Background()

	_, err := svc.Create(ctx, u.ID, CategoryInput{Name: "Work"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, u.ID, CategoryInput{Name: "Work"})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperror.CodeDuplicateName, appErr.Code)
}

func TestCategoryCreate_SequentialSortOrder(t *testing.T) {
	svc, db := newTestCategoryService(t)
	u := newTestUser(t, db, "u1@example.com")

	for i := 1; i <= 4; i++ {
		c, err := svc.Create(context.Background(), u.ID, CategoryInput{Name: strings.Repeat("x", i)})
		require.NoError(t, err)
		assert.Equal(t, i, c.SortOrder)
	}
}

func TestCategoryUpdate(t *testing.T) {
	svc, db := newTestCategoryService(t)
	ctx := context.Background()
	u := newTestUser(t, db, "u1@example.com")

	c, err := svc.Create(ctx, u.ID, CategoryInput{Name: "Old"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, u.ID, CategoryInput{Name: "Taken"})
	require.NoError(t, err)

	// Keeping your own name is not a conflict.
	_, err = svc.Update(ctx, c.ID, u.ID, CategoryInput{Name: "Old", Icon: "star"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, u.ID, CategoryInput{Name: "Taken"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Update(ctx, c.ID, u.ID, CategoryInput{Name: ""})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCategoryGetByID_NotFound(t *testing.T) {
	svc, db := newTestCategoryService(t)
	u := newTestUser(t, db, "u1@example.com")

	_, err := svc.GetByID(context.Background(), "nope", u.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetByID(context.Background(), " ", u.ID)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestCategoryDelete(t *testing.T) {
	svc, db := newTestCategoryService(t)
	ctx := context.Background()
	u := newTestUser(t, db, "u1@example.com")

	c, err := svc.Create(ctx, u.ID, CategoryInput{Name: "Gone"})
	require.NoError(t, err)

	id, err := svc.Delete(ctx, c.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	_, err = svc.Delete(ctx, c.ID, u.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// brokenCategoryRepo fails every call with a raw storage error.
type brokenCategoryRepo struct {
	repository.CategoryRepository
}

func (brokenCategoryRepo) ListCategories(context.Context, string) ([]model.Category, error) {
	return nil, errors.New("sqlite: database disk image is malformed")
}

func TestCategoryList_CoercesUnknownErrors(t *testing.T) {
	svc := NewCategoryService(brokenCategoryRepo{}, testLogger())

	_, err := svc.List(context.Background(), "u1")
	require.ErrorIs(t, err, apperror.ErrUnknown)
	assert.NotContains(t, err.Error(), "malformed", "raw storage text must not leak")
}
