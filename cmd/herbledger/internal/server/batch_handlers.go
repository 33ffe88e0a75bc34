package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

type createBatchRequest struct {
	Reference string `json:"reference"`
	ContentID string `json:"content_id"`
}

type stageRequest struct {
	ContentID string `json:"content_id"`
}

type stageResponse struct {
	BatchID   int64  `json:"batch_id"`
	Stage     string `json:"stage"`
	ContentID string `json:"content_id"`
	Writer    string `json:"writer"`
}

func batchID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, invalidInput("batch id %q is not a number", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalidInput("%s must be a non-negative integer", name)
	}
	return n, nil
}

// createBatch handles POST /api/batches.
func (h *handlers) createBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	created, err := h.ledger.CreateBatch(r.Context(), caller(r), req.Reference, req.ContentID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Location", "/api/batches/"+strconv.FormatInt(created.BatchID, 10))
	writeJSON(w, http.StatusCreated, created)
}

// addStage handles POST /api/batches/{id}/stages/{stage}.
func (h *handlers) addStage(w http.ResponseWriter, r *http.Request) {
	id, err := batchID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	stage, err := custody.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	var req stageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	if err := h.ledger.AddStageData(r.Context(), caller(r), id, stage, req.ContentID); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stageResponse{
		BatchID:   id,
		Stage:     stage.String(),
		ContentID: req.ContentID,
		Writer:    caller(r),
	})
}

// getBatch handles GET /api/batches/{id}.
func (h *handlers) getBatch(w http.ResponseWriter, r *http.Request) {
	id, err := batchID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	batch, err := h.ledger.GetFullBatch(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// getSummary handles GET /api/batches/{id}/summary.
func (h *handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	id, err := batchID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	summary, err := h.ledger.GetBatchSummary(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// getRecord handles GET /api/batches/{id}/record.
func (h *handlers) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := batchID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	record, err := h.ledger.GetBatchRecord(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// getTrail handles GET /api/batches/{id}/trail.
func (h *handlers) getTrail(w http.ResponseWriter, r *http.Request) {
	id, err := batchID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	t, err := h.trail.Assemble(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// listBatches handles GET /api/batches?filter=&limit=&offset=.
func (h *handlers) listBatches(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	batches, err := h.ledger.ListBatches(r.Context(), r.URL.Query().Get("filter"), limit, offset)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}
