package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/auth"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
)

type TokenVerifier interface {
	Authenticate(token string) (*auth.Claims, error)
}

type AuthService interface {
	TokenVerifier
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
}

type AuthHandler struct {
	auth    AuthService
	timeout time.Duration
	rs      *responder
}

func NewAuthHandler(svc AuthService, timeout time.Duration, rs *responder) *AuthHandler {
	return &AuthHandler{
		auth:    svc,
		timeout: timeout,
		rs:      rs,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	res, err := h.auth.Register(ctx, req)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}
	h.rs.json(w, http.StatusCreated, ok(res, "User registered successfully"))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	res, err := h.auth.Login(ctx, req)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}
	h.rs.json(w, http.StatusOK, ok(res, "Login successful"))
}

// Me must run behind RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	claims, err := auth.ClaimsFromContext(r.Context())
	if err != nil {
		h.rs.fail(w, r, domain.ErrUnauthorized, "")
		return
	}

	u, err := h.auth.Me(ctx, claims.Subject)
	if err != nil {
		h.rs.fail(w, r, err, "User not found")
		return
	}
	h.rs.json(w, http.StatusOK, ok(u, ""))
}

// Logout is stateless. Clients drop the token.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.rs.json(w, http.StatusOK, ok(nil, "Logged out successfully"))
}
