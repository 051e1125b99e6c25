package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshelf/internal/service"
)

// CategoryHandler serves the top level of the taxonomy. Every route runs
// behind auth.RequireAuth; the caller's id scopes every query.
type CategoryHandler struct {
	categories *service.CategoryService
	genres     *service.GenreService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, genres *service.GenreService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{categories: categories, genres: genres, logger: logger}
}

// deletedResponse is returned by every DELETE so clients can drop the id
// from their caches.
type deletedResponse struct {
	ID string `json:"id"`
}

// HandleList returns the caller's categories in sort order.
//
// HTTP: GET /api/categories
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	categories, err := h.categories.List(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// HandleGetByID returns one category.
//
// HTTP: GET /api/categories/{id}
func (h *CategoryHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	c, err := h.categories.GetByID(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleCreate adds a category after the caller's last one.
//
// HTTP: POST /api/categories
// REQUEST BODY: {"name": "Work", "description": "", "color": "#1A2B3C", "icon": "briefcase"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid category JSON",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	c, err := h.categories.Create(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// HandleUpdate replaces the editable fields of a category.
//
// HTTP: PATCH /api/categories/{id}
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var in service.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid category JSON",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	c, err := h.categories.Update(r.Context(), chi.URLParam(r, "id"), id.UserID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleDeletionStats previews what HandleDelete would remove.
//
// HTTP: GET /api/categories/{id}/deletion-stats
func (h *CategoryHandler) HandleDeletionStats(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	stats, err := h.categories.DeletionStats(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleDelete removes a category together with its genres and bookmarks.
//
// HTTP: DELETE /api/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "id")
	h.logger.Info("category delete requested",
		slog.String("id", target),
		slog.String("userID", id.UserID),
	)
	deleted, err := h.categories.Delete(r.Context(), target, id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{ID: deleted})
}

// HandleListGenres returns the genres of one category.
//
// HTTP: GET /api/categories/{id}/genres
func (h *CategoryHandler) HandleListGenres(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	genres, err := h.genres.ListByCategory(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}
