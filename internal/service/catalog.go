package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CreateProductInput is the admin payload for a new product. Pointers tell a
// missing field apart from a zero one.
type CreateProductInput struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"required,max=500"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Image       string           `json:"image" validate:"required"`
	Category    string           `json:"category" validate:"required,oneof=Electronics Accessories Office Clothing Home Books Sports Other"`
	Stock       *int             `json:"stock" validate:"required,min=0"`
}

var productMessages = map[string]string{
	"name.required":        "Product name is required",
	"name.max":             "Product name cannot exceed 100 characters",
	"description.required": "Product description is required",
	"description.max":      "Description cannot exceed 500 characters",
	"price.required":       "Product price is required",
	"image.required":       "Product image URL is required",
	"category.required":    "Product category is required",
	"category.oneof":       "Category must be one of Electronics, Accessories, Office, Clothing, Home, Books, Sports, Other",
	"stock.required":       "Stock quantity is required",
	"stock.min":            "Stock cannot be negative",
}

type CatalogService struct {
	products repository.ProductRepository
	validate *validator.Validate
	log      *slog.Logger
}

func NewCatalogService(products repository.ProductRepository, log *slog.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		validate: newValidator(),
		log:      log.With("component", "catalog"),
	}
}

func (s *CatalogService) Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.Limit < 0 {
		return nil, domain.NewValidationError("Limit must be a positive number")
	}
	return s.products.Search(ctx, filter.Normalize())
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// ByCategory matches the category name ignoring case. An unknown name has no products.
func (s *CatalogService) ByCategory(ctx context.Context, name string) ([]domain.Product, error) {
	category, ok := domain.ParseCategory(name)
	if !ok {
		return []domain.Product{}, nil
	}
	return s.products.Search(ctx, domain.ProductFilter{Category: category, Limit: domain.MaxSearchLimit})
}

func (s *CatalogService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
	in.Category = strings.TrimSpace(in.Category)

	if err := validateStruct(s.validate, in, productMessages); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("Price must be a positive number")
	}

	p := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price.Round(2),
		Image:       in.Image,
		Category:    domain.Category(in.Category),
		Stock:       *in.Stock,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *CatalogService) IncreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	if amount < 1 {
		return nil, domain.NewValidationError("Amount must be at least 1")
	}
	return s.products.IncreaseStock(ctx, id, amount)
}

func (s *CatalogService) DecreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	if amount < 1 {
		return nil, domain.NewValidationError("Amount must be at least 1")
	}
	return s.products.DecreaseStock(ctx, id, amount)
}

// Seed inserts products when the catalog is empty and reports how many were added.
func (s *CatalogService) Seed(ctx context.Context, products []domain.Product) (int, error) {
	n, err := s.products.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	for i := range products {
		if err := s.products.Create(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to seed %q: %w", products[i].Name, err)
		}
	}
	s.log.InfoContext(ctx, "catalog seeded", "count", len(products))
	return len(products), nil
}
