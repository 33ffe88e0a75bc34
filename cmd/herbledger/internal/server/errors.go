package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/content"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error to its HTTP status and stable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, custody.ErrUnauthorized):
		return http.StatusForbidden, custody.Code(err)
	case errors.Is(err, custody.ErrBatchNotFound):
		return http.StatusNotFound, custody.Code(err)
	case errors.Is(err, custody.ErrStageOutOfOrder), errors.Is(err, custody.ErrAlreadyRecorded):
		return http.StatusConflict, custody.Code(err)
	case errors.Is(err, custody.ErrInvalidInput):
		return http.StatusBadRequest, custody.Code(err)
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "content_not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", custody.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalidInput("request body: %v", err)
	}
	return nil
}
