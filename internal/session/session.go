// Package session derives the cart session id of a request.
package session

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

const (
	HeaderName  = "X-Session-ID"
	QueryParam  = "sessionId"
	SharedID    = "default_session"
	MaxIDLength = 128
)

type Session struct {
	ID string
	// Issued is set when the id was generated for this request.
	Issued bool
}

type Resolver struct {
	shared bool
	newID  func() string
}

// NewResolver returns a resolver that issues a fresh id to requests without
// one, or falls back to SharedID when shared is true.
func NewResolver(shared bool) *Resolver {
	return &Resolver{shared: shared, newID: uuid.NewString}
}

// Resolve picks the first non-empty of bodyID, the sessionId query parameter
// and the X-Session-ID header.
func (r *Resolver) Resolve(req *http.Request, bodyID string) (Session, error) {
	candidates := []string{
		bodyID,
		req.URL.Query().Get(QueryParam),
		req.Header.Get(HeaderName),
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) > MaxIDLength {
			return Session{}, domain.NewValidationError(
				fmt.Sprintf("Session id must be at most %d characters", MaxIDLength))
		}
		return Session{ID: c}, nil
	}

	if r.shared {
		return Session{ID: SharedID}, nil
	}
	return Session{ID: r.newID(), Issued: true}, nil
}
