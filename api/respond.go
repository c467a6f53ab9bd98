package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/DGISsoft/prodreport/services/errs"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusOf maps an error kind to its HTTP status. Only storage failures
// and unknown errors are server errors.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrDuplicate), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrIncompleteDraft):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeMessage(w, status, "internal error")
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Missing: errs.Missing(err)})
}

// decodeJSON reads a bounded JSON body. An empty body leaves out untouched.
func decodeJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errs.Validation("failed to read body: %v", err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errs.Validation("malformed JSON: %v", err)
	}
	return nil
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return i
}
