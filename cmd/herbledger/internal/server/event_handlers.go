package server

import (
	"net/http"
	"strconv"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
)

// listEvents handles GET /api/events?batch_id=&kind=&after=&limit=.
func (h *handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	q := ledger.EventQuery{Kind: r.URL.Query().Get("kind")}
	if raw := r.URL.Query().Get("batch_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, h.log, invalidInput("batch_id %q is not a number", raw))
			return
		}
		q.BatchID = &id
	}
	after, err := queryInt(r, "after")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	q.AfterSeq = int64(after)
	if q.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, h.log, err)
		return
	}

	evs, err := h.ledger.Events(r.Context(), q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, evs)
}

// verifyEvents handles GET /api/events/verify.
func (h *handlers) verifyEvents(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.VerifyEvents(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
