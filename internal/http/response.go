package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
	"github.com/shopspring/decimal"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool         `json:"success"`
	Count   *int         `json:"count,omitempty"`
	Data    any          `json:"data,omitempty"`
	Summary *CartSummary `json:"summary,omitempty"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	Errors  []string     `json:"errors,omitempty"`
}

type CartSummary struct {
	Total     string `json:"total"`
	ItemCount int    `json:"itemCount"`
}

func newSummary(total decimal.Decimal, itemCount int) *CartSummary {
	return &CartSummary{Total: total.StringFixed(2), ItemCount: itemCount}
}

func ok(data any, message string) Envelope {
	return Envelope{Success: true, Data: data, Message: message}
}

func list[T any](items []T) Envelope {
	n := len(items)
	return Envelope{Success: true, Count: &n, Data: items}
}

func failure(message string) Envelope {
	return Envelope{Success: false, Message: message}
}

var errInvalidBody = errors.New("invalid JSON body")

// responder writes envelopes and maps service errors onto status codes.
type responder struct {
	log          *slog.Logger
	exposeErrors bool
}

func (rs *responder) json(w http.ResponseWriter, status int, body Envelope) {
	if err := respondJSON(w, status, body); err != nil {
		rs.log.Error("failed to encode response", "error", err)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// fail writes err as an envelope. notFound is the message for domain.ErrNotFound.
func (rs *responder) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var verr *domain.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		if len(verr.Messages) == 1 {
			rs.json(w, http.StatusBadRequest, failure(verr.Messages[0]))
			return
		}
		body := failure("Validation Error")
		body.Errors = verr.Messages
		rs.json(w, http.StatusBadRequest, body)
	case errors.As(err, &tooLarge):
		rs.json(w, http.StatusRequestEntityTooLarge, failure("Request body too large"))
	case errors.Is(err, errInvalidBody):
		rs.json(w, http.StatusBadRequest, failure("Invalid JSON body"))
	case errors.Is(err, domain.ErrInsufficientStock):
		rs.json(w, http.StatusBadRequest, failure("Insufficient stock"))
	case errors.Is(err, domain.ErrNotFound):
		rs.json(w, http.StatusNotFound, failure(notFound))
	case errors.Is(err, service.ErrInvalidCredentials):
		rs.json(w, http.StatusUnauthorized, failure("Invalid email or password"))
	case errors.Is(err, domain.ErrUnauthorized):
		rs.json(w, http.StatusUnauthorized, failure("Invalid token"))
	case errors.Is(err, domain.ErrForbidden):
		rs.json(w, http.StatusForbidden, failure("Access denied. Admin privileges required."))
	case errors.Is(err, domain.ErrAlreadyExists):
		rs.json(w, http.StatusBadRequest, failure("User already exists with this email"))
	case errors.Is(err, context.DeadlineExceeded):
		rs.log.WarnContext(r.Context(), "request timed out", "path", r.URL.Path)
		rs.json(w, http.StatusGatewayTimeout, failure("Request timed out"))
	default:
		rs.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		body := failure("Server Error")
		if rs.exposeErrors {
			body.Error = err.Error()
		}
		rs.json(w, http.StatusInternalServerError, body)
	}
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errInvalidBody
}
