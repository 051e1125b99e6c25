package handler

import (
	"context"
	"net/http"
)

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// HandleCheck reports whether the database answers.
//
// HTTP: GET /healthz
func (h *HealthHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus, result, status := "ok", "ok", http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		dbStatus, result, status = "error", "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": result,
		"checks": map[string]string{
			"database": dbStatus,
		},
	})
}
