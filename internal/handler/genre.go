package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshelf/internal/service"
)

// GenreHandler serves genres and the bookmarks filed under them.
type GenreHandler struct {
	genres *service.GenreService
	urls   *service.URLService
	logger *slog.Logger
}

func NewGenreHandler(genres *service.GenreService, urls *service.URLService, logger *slog.Logger) *GenreHandler {
	return &GenreHandler{genres: genres, urls: urls, logger: logger}
}

// HTTP: GET /api/genres/{id}
func (h *GenreHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	g, err := h.genres.GetByID(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HandleCreate adds a genre to one of the caller's categories.
//
// HTTP: POST /api/genres
// REQUEST BODY: {"categoryId": "…", "name": "Rust", "color": "#DEA584"}
func (h *GenreHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var in service.GenreInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid genre JSON",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	g, err := h.genres.Create(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleUpdate edits a genre in place. A categoryId in the body is ignored.
//
// HTTP: PATCH /api/genres/{id}
func (h *GenreHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var in service.GenreInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid genre JSON",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	g, err := h.genres.Update(r.Context(), chi.URLParam(r, "id"), id.UserID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// HTTP: GET /api/genres/{id}/deletion-stats
func (h *GenreHandler) HandleDeletionStats(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	stats, err := h.genres.DeletionStats(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HTTP: DELETE /api/genres/{id}
func (h *GenreHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "id")
	h.logger.Info("genre delete requested",
		slog.String("id", target),
		slog.String("userID", id.UserID),
	)
	deleted, err := h.genres.Delete(r.Context(), target, id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{ID: deleted})
}

// HandleListURLs returns the genre's bookmarks, newest first.
//
// HTTP: GET /api/genres/{id}/urls
func (h *GenreHandler) HandleListURLs(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	urls, err := h.urls.ListByGenre(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, urls)
}
