package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
)

// Envelope is the body of every /api/v1 response.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    Meta      `json:"meta"`
}

type APIError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE_TRANSITION"
	CodeConflict     = "CONFLICT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
	CodeRateLimited  = "TOO_MANY_REQUESTS"
)

const maxBodyBytes = 1 << 20

// statusFor maps an error kind onto the HTTP status and the public code.
func statusFor(kind errs.Kind) (int, string) {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest, CodeValidation
	case errs.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case errs.KindInvalidState:
		return http.StatusConflict, CodeInvalidState
	case errs.KindIntegrity:
		return http.StatusConflict, CodeConflict
	case errs.KindTransient:
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handler) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Envelope{
		Success: true,
		Data:    data,
		Meta:    metaFor(r),
	})
}

// writeError renders err with its kind. Server-side failures are logged; the
// error chain is exposed only in diagnostic mode.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	status, code := statusFor(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Error(r.Context(), "request failed", slog.Any("err", errs.Loggable(err)))
		if !h.diagnostic {
			message = http.StatusText(status)
		}
	} else {
		logging.Debug(r.Context(), "request rejected",
			slog.String("kind", kind.String()),
			slog.String("err", err.Error()),
		)
	}

	apiErr := &APIError{Code: code, Message: message}
	if h.diagnostic {
		apiErr.Details = errs.ErrorChainStrings(err)
	}
	writeJSON(w, status, Envelope{Error: apiErr, Meta: metaFor(r)})
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func metaFor(r *http.Request) Meta {
	return Meta{
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
}

// decodeBody reads one JSON object into dst. Unknown fields are rejected.
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errs.Validation("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("request body is required")
		}
		return errs.As(errs.KindValidation, errs.Wrap(err, "decode request body"))
	}
	if dec.More() {
		return errs.Validation("request body must contain a single JSON object")
	}
	return nil
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
