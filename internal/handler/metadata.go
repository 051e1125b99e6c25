package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/linkshelf/internal/metadata"
)

// MetadataFetcher is satisfied by *metadata.Fetcher.
type MetadataFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*metadata.Metadata, error)
}

type MetadataHandler struct {
	fetcher MetadataFetcher
	logger  *slog.Logger
}

func NewMetadataHandler(fetcher MetadataFetcher, logger *slog.Logger) *MetadataHandler {
	return &MetadataHandler{fetcher: fetcher, logger: logger}
}

// HandleFetch prefills the "add bookmark" form.
//
// HTTP: GET /api/metadata?url=https://example.com/page
//
// An unreachable page is not an error for the client: it gets the host as
// title and /favicon.ico, and can still save the bookmark.
func (h *MetadataHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	target, err := metadata.ParseTarget(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	md, err := h.fetcher.Fetch(r.Context(), raw)
	if err != nil {
		h.logger.Warn("metadata fetch failed",
			slog.String("host", target.Host),
			slog.String("error", err.Error()),
		)
		md = metadata.Fallback(target)
	}
	writeJSON(w, http.StatusOK, md)
}
