package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/service"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	ByCategory(ctx context.Context, name string) ([]domain.Product, error)
	Create(ctx context.Context, in service.CreateProductInput) (*domain.Product, error)
	IncreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error)
	DecreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error)
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
	rs      *responder
}

func NewProductHandler(catalog CatalogService, timeout time.Duration, rs *responder) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		rs:      rs,
	}
}

type StockRequestDTO struct {
	Amount int `json:"amount"`
}

// filterFromQuery reads category, search, sort and limit.
func filterFromQuery(r *http.Request) (domain.ProductFilter, error) {
	q := r.URL.Query()
	filter := domain.ProductFilter{
		Search: q.Get("search"),
		Sort:   domain.ProductSort(q.Get("sort")),
	}

	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, found := domain.ParseCategory(raw)
		if !found {
			return filter, domain.NewValidationError("Invalid category")
		}
		filter.Category = category
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, domain.NewValidationError("Limit must be a positive number")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	filter, err := filterFromQuery(r)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	products, err := h.catalog.Search(ctx, filter)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}
	h.rs.json(w, http.StatusOK, list(products))
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.rs.fail(w, r, err, "Product not found")
		return
	}
	h.rs.json(w, http.StatusOK, ok(p, ""))
}

func (h *ProductHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ByCategory(ctx, chi.URLParam(r, "category"))
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}
	h.rs.json(w, http.StatusOK, list(products))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.CreateProductInput
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	p, err := h.catalog.Create(ctx, req)
	if err != nil {
		h.rs.fail(w, r, err, "")
		return
	}
	h.rs.json(w, http.StatusCreated, ok(p, "Product created successfully"))
}

func (h *ProductHandler) IncreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.catalog.IncreaseStock, "Stock increased")
}

func (h *ProductHandler) DecreaseStock(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.catalog.DecreaseStock, "Stock decreased")
}

func (h *ProductHandler) adjustStock(
	w http.ResponseWriter,
	r *http.Request,
	adjust func(ctx context.Context, id string, amount int) (*domain.Product, error),
	message string,
) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StockRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		h.rs.fail(w, r, err, "")
		return
	}

	p, err := adjust(ctx, chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		h.rs.fail(w, r, err, "Product not found")
		return
	}
	h.rs.json(w, http.StatusOK, ok(p, message))
}
