package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/linkshelf/internal/handler"
	"github.com/sakif/linkshelf/internal/model"
)

func TestAPI_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodGet, "/api/categories", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(http.MethodGet, "/api/categories", nil, &http.Cookie{Name: "session", Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCategoryHandler_CRUD(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("ada@example.com")

	t.Run("create", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Work", "color": "#1A2B3C"}, cookie)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		c := decodeBody[model.Category](t, rr)
		assert.Equal(t, "Work", c.Name)
		assert.Equal(t, 1, c.SortOrder)
	})

	t.Run("duplicate name is a 409 with its code", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Work"}, cookie)
		require.Equal(t, http.StatusConflict, rr.Code)
		body := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "duplicate_name", body.Error)
		assert.Equal(t, "name", body.Field)
	})

	t.Run("validation error", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Home", "color": "blue"}, cookie)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decodeBody[handler.ErrorResponse](t, rr)
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "color", body.Field)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		rr := env.do(http.MethodPost, "/api/categories", `{"name":`, cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code)

		rr = env.do(http.MethodPost, "/api/categories", `{"name":"x","owner":"someone"}`, cookie)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown fields are rejected")
	})

	t.Run("list, update and delete", func(t *testing.T) {
		rr := env.do(http.MethodGet, "/api/categories", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		list := decodeBody[[]model.Category](t, rr)
		require.Len(t, list, 1)
		id := list[0].ID

		rr = env.do(http.MethodPatch, "/api/categories/"+id, map[string]string{"name": "Office"}, cookie)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "Office", decodeBody[model.Category](t, rr).Name)

		rr = env.do(http.MethodDelete, "/api/categories/"+id, nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, id, decodeBody[map[string]string](t, rr)["id"])

		rr = env.do(http.MethodGet, "/api/categories/"+id, nil, cookie)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestCategoryHandler_OtherUsersDataIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.signIn("owner@example.com")
	_, intruder := env.signIn("intruder@example.com")

	rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Private"}, owner)
	require.Equal(t, http.StatusCreated, rr.Code)
	c := decodeBody[model.Category](t, rr)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/categories/" + c.ID},
		{http.MethodGet, "/api/categories/" + c.ID + "/genres"},
		{http.MethodGet, "/api/categories/" + c.ID + "/deletion-stats"},
		{http.MethodDelete, "/api/categories/" + c.ID},
	} {
		rr := env.do(req.method, req.path, nil, intruder)
		assert.Equal(t, http.StatusNotFound, rr.Code, req.method+" "+req.path)
	}

	rr = env.do(http.MethodGet, "/api/categories/"+c.ID, nil, owner)
	assert.Equal(t, http.StatusOK, rr.Code, "the category survived")
}

// The bookmark lifecycle end to end: category → genre → url, then a
// cascading delete from the top.
func TestBookmarkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("reader@example.com")

	rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Programming"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	category := decodeBody[model.Category](t, rr)

	rr = env.do(http.MethodPost, "/api/genres", map[string]string{"categoryId": category.ID, "name": "Rust"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	genre := decodeBody[model.Genre](t, rr)

	rr = env.do(http.MethodGet, "/api/categories/"+category.ID+"/genres", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.Genre](t, rr), 1)

	book := map[string]string{"genreId": genre.ID, "title": "Rust Book", "url": "https://doc.rust-lang.org/book/"}
	rr = env.do(http.MethodPost, "/api/urls", book, cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saved := decodeBody[model.URL](t, rr)
	assert.Equal(t, category.ID, saved.CategoryID)

	rr = env.do(http.MethodPost, "/api/urls", book, cookie)
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "duplicate_url", decodeBody[handler.ErrorResponse](t, rr).Error)

	rr = env.do(http.MethodPost, "/api/urls/"+saved.ID+"/visit", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decodeBody[model.URL](t, rr).ViewCount)

	rr = env.do(http.MethodGet, "/api/genres/"+genre.ID+"/urls", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]model.URL](t, rr), 1)

	rr = env.do(http.MethodGet, "/api/categories/"+category.ID+"/deletion-stats", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[model.CategoryDeletionStats](t, rr)
	assert.Equal(t, 1, stats.GenreCount)
	assert.Equal(t, 1, stats.URLCount)

	rr = env.do(http.MethodDelete, "/api/categories/"+category.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/api/genres/"+genre.ID, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(http.MethodDelete, "/api/urls/"+saved.ID, nil, cookie)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGenreHandler_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.signIn("g@example.com")

	rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Music"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	category := decodeBody[model.Category](t, rr)

	rr = env.do(http.MethodPost, "/api/genres", map[string]string{"categoryId": category.ID, "name": "Jazz"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	genre := decodeBody[model.Genre](t, rr)

	rr = env.do(http.MethodPatch, "/api/genres/"+genre.ID, map[string]string{"name": "Bebop"}, cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Bebop", decodeBody[model.Genre](t, rr).Name)

	rr = env.do(http.MethodGet, "/api/genres/"+genre.ID+"/deletion-stats", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[model.GenreDeletionStats](t, rr)
	assert.Equal(t, "Bebop", stats.GenreName)
	assert.Equal(t, "Music", stats.CategoryName)

	rr = env.do(http.MethodDelete, "/api/genres/"+genre.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(http.MethodGet, "/api/categories/"+category.ID+"/genres", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[[]model.Genre](t, rr))
}

func TestURLHandler_IgnoresUserIDFromBody(t *testing.T) {
	env := newTestEnv(t)
	victim, _ := env.signIn("victim@example.com")
	_, cookie := env.signIn("attacker@example.com")

	rr := env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Mine"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	category := decodeBody[model.Category](t, rr)
	rr = env.do(http.MethodPost, "/api/genres", map[string]string{"categoryId": category.ID, "name": "Links"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	genre := decodeBody[model.Genre](t, rr)

	rr = env.do(http.MethodPost, "/api/urls", map[string]string{
		"userId":  victim.ID,
		"genreId": genre.ID,
		"title":   "Example",
		"url":     "https://example.com",
	}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEqual(t, victim.ID, decodeBody[model.URL](t, rr).UserID)
}

func TestTaxonomyHandlers_LogRejectedBodiesAndDeletes(t *testing.T) {
	env := newTestEnv(t)
	u, cookie := env.signIn("ada@example.com")

	rr := env.do(http.MethodPost, "/api/categories", `{"name": "Work", "owner": "x"}`, cookie)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, env.logs.String(), `msg="invalid category JSON"`)
	assert.Contains(t, env.logs.String(), "userID="+u.ID)

	rr = env.do(http.MethodPost, "/api/categories", map[string]string{"name": "Work"}, cookie)
	require.Equal(t, http.StatusCreated, rr.Code)
	c := decodeBody[model.Category](t, rr)

	rr = env.do(http.MethodDelete, "/api/categories/"+c.ID, nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, env.logs.String(), `msg="category delete requested" id=`+c.ID)
}
