package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

// ProductStore implements repository.ProductRepository with in-memory storage
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]*domain.Product // productID -> product
	now      func() time.Time
}

// NewProductStore creates an empty in-memory catalog
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]*domain.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindByID returns a copy of the product
func (s *ProductStore) FindByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("product %q: %w", id, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

// Search filters and sorts the whole catalog in memory
func (s *ProductStore) Search(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Matches(*p) {
			result = append(result, *p)
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return filter.Less(result[i], result[j])
	})
	if len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Create stores a copy of p under a fresh id
func (s *ProductStore) Create(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *ProductStore) Count(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

// DecreaseStock validates and subtracts under one lock
func (s *ProductStore) DecreaseStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("product %q: %w", id, domain.ErrNotFound)
	}
	if p.Stock < amount {
		return nil, domain.ErrInsufficientStock
	}

	p.Stock -= amount
	p.UpdatedAt = s.now()
	cp := *p
	return &cp, nil
}

func (s *ProductStore) IncreaseStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return nil, fmt.Errorf("product %q: %w", id, domain.ErrNotFound)
	}

	p.Stock += amount
	p.UpdatedAt = s.now()
	cp := *p
	return &cp, nil
}
