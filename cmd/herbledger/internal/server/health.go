package server

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
)

type healthResponse struct {
	Status      string `json:"status"`
	DevMode     bool   `json:"dev_mode"`
	LastBatchID int64  `json:"last_batch_id"`
}

// HealthHandler reports liveness and the last allocated batch id. It answers
// 503 when the ledger database cannot be read.
func HealthHandler(l *ledger.Service, devMode bool, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		last, err := l.LastBatchID(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", DevMode: devMode})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DevMode: devMode, LastBatchID: last})
	}
}
