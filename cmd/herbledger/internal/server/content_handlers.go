package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

type contentResponse struct {
	CID         string   `json:"cid"`
	URI         string   `json:"uri"`
	GatewayURL  string   `json:"gateway_url"`
	Attachments []string `json:"attachments,omitempty"`
}

func (h *handlers) contentResponse(id string) contentResponse {
	return contentResponse{
		CID:        id,
		URI:        content.URI(id),
		GatewayURL: content.GatewayURL(h.gateway, id),
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, content.MaxBlockSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, invalidInput("body exceeds %d bytes", content.MaxBlockSize)
		}
		return nil, invalidInput("read body: %v", err)
	}
	return body, nil
}

// putContent handles POST /api/content with the raw bytes as body.
func (h *handlers) putContent(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	id, err := h.content.Put(r.Context(), body)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.contentResponse(id))
}

// getContent handles GET /api/content/{cid}.
func (h *handlers) getContent(w http.ResponseWriter, r *http.Request) {
	data, err := h.content.Get(r.Context(), chi.URLParam(r, "cid"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// putMetadata handles POST /api/metadata/{stage}: the document is validated
// against the stage schema and stored on success.
func (h *handlers) putMetadata(w http.ResponseWriter, r *http.Request) {
	stage, err := custody.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	_, attachments, err := h.validator.Inspect(stage, body)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	id, err := h.content.Put(r.Context(), body)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	resp := h.contentResponse(id)
	resp.Attachments = attachments
	writeJSON(w, http.StatusCreated, resp)
}
