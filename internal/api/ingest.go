package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/invenzis/brain/internal/ingest"
	"github.com/invenzis/brain/internal/log"
)

// Ingester rebuilds the knowledge chunks.
type Ingester interface {
	Run(ctx context.Context) (ingest.Stats, error)
}

type ingestHandler struct {
	ingester Ingester
	secret   string
	logger   log.Logger
}

type ingestResponse struct {
	Tables  int   `json:"tables"`
	Chunks  int   `json:"chunks"`
	Deleted int64 `json:"deleted"`
}

// trigger runs a full re-ingest. Guarded by a shared secret: the
// endpoint is expensive and rewrites the whole chunk table.
func (h *ingestHandler) trigger(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get("X-Ingest-Secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid ingest secret", h.logger)
		return
	}

	stats, err := h.ingester.Run(r.Context())
	if err != nil {
		h.logger.Error("ingest run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingest_failed", "ingest run failed", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Tables:  stats.Tables,
		Chunks:  stats.Chunks,
		Deleted: stats.Deleted,
	}, h.logger)
}
