package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/session"
	"github.com/go-chi/chi/v5"
)

type CartService interface {
	AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.LineItem, bool, error)
	GetItem(ctx context.Context, sessionID, itemID string) (*domain.LineItem, error)
	SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) error
	GetCart(ctx context.Context, sessionID string) (domain.Cart, error)
	ClearCart(ctx context.Context, sessionID string) (int64, error)
}

type CartHandler struct {
	cart     CartService
	sessions *session.Resolver
	timeout  time.Duration
	rs       *responder
}

func NewCartHandler(cart CartService, sessions *session.Resolver, timeout time.Duration, rs *responder) *CartHandler {
	return &CartHandler{
		cart:     cart,
		sessions: sessions,
		timeout:  timeout,
		rs:       rs,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity"`
	SessionID string `json:"sessionId"`
}

type UpdateQuantityRequestDTO struct {
	Quantity  *int   `json:"quantity"`
	SessionID string `json:"sessionId"`
}

// resolveSession echoes the session id in the response headers. It writes the
// error response itself and returns false when the id is unusable.
func (h *CartHandler) resolveSession(w http.ResponseWriter, r *http.Request, bodyID string) (string, bool) {
	s, err := h.sessions.Resolve(r, bodyID)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return "", false
	}
	w.Header().Set(session.HeaderName, s.ID)
	return s.ID, true
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, valid := h.resolveSession(w, r, "")
	if !valid {
		return
	}

	cart, err := h.cart.GetCart(ctx, sessionID)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	body := list(cart.Items)
	body.Summary = newSummary(cart.Total, cart.ItemCount)
	h.rs.json(w, http.StatusOK, body)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	sessionID, valid := h.resolveSession(w, r, req.SessionID)
	if !valid {
		return
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		h.rs.json(w, http.StatusBadRequest, failure("Product ID is required"))
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	item, created, err := h.cart.AddItem(ctx, sessionID, productID, quantity)
	if err != nil {
		h.rs.fail(w, r, err, "Product not found")
		return
	}

	if created {
		h.rs.json(w, http.StatusCreated, ok(item, "Item added to cart successfully"))
		return
	}
	h.rs.json(w, http.StatusOK, ok(item, "Cart updated successfully"))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	sessionID, valid := h.resolveSession(w, r, req.SessionID)
	if !valid {
		return
	}

	if req.Quantity == nil {
		h.rs.json(w, http.StatusBadRequest, failure("Quantity is required"))
		return
	}

	itemID := chi.URLParam(r, "id")
	if _, err := h.cart.GetItem(ctx, sessionID, itemID); err != nil {
		h.rs.fail(w, r, err, "Cart item not found")
		return
	}

	item, err := h.cart.SetQuantity(ctx, sessionID, itemID, *req.Quantity)
	if err != nil {
		h.rs.fail(w, r, err, "Cart item not found")
		return
	}

	if item == nil {
		h.rs.json(w, http.StatusOK, ok(nil, "Item removed from cart"))
		return
	}
	h.rs.json(w, http.StatusOK, ok(item, "Cart item updated successfully"))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, valid := h.resolveSession(w, r, "")
	if !valid {
		return
	}

	if err := h.cart.RemoveItem(ctx, sessionID, chi.URLParam(r, "id")); err != nil {
		h.rs.fail(w, r, err, "Cart item not found")
		return
	}

	h.rs.json(w, http.StatusOK, ok(nil, "Item removed from cart successfully"))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID, valid := h.resolveSession(w, r, "")
	if !valid {
		return
	}

	if _, err := h.cart.ClearCart(ctx, sessionID); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	h.rs.json(w, http.StatusOK, ok(nil, "Cart cleared successfully"))
}
