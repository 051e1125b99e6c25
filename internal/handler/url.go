package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/linkshelf/internal/service"
)

type URLHandler struct {
	urls   *service.URLService
	logger *slog.Logger
}

func NewURLHandler(urls *service.URLService, logger *slog.Logger) *URLHandler {
	return &URLHandler{urls: urls, logger: logger}
}

// HandleCreate saves a bookmark into a genre. The owner always comes from
// the session; a userId in the body is overwritten.
//
// HTTP: POST /api/urls
// REQUEST BODY: {"genreId": "…", "title": "Rust Book", "url": "https://doc.rust-lang.org/book/"}
func (h *URLHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var in service.URLInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.logger.Warn("invalid url JSON",
			slog.String("userID", id.UserID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}
	in.UserID = id.UserID

	u, err := h.urls.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleDelete removes a bookmark and reports the genre and category it
// lived in.
//
// HTTP: DELETE /api/urls/{id}
func (h *URLHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "id")
	h.logger.Info("url delete requested",
		slog.String("id", target),
		slog.String("userID", id.UserID),
	)
	del, err := h.urls.Delete(r.Context(), target, id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, del)
}

// HandleVisit counts a click on a bookmark.
//
// HTTP: POST /api/urls/{id}/visit
func (h *URLHandler) HandleVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	u, err := h.urls.RecordVisit(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
