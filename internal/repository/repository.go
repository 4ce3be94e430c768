package repository

import (
	"context"

	"github.com/fjod/go_shop/internal/domain"
)

// ProductRepository is the product catalog store.
// Lookups of absent or malformed ids return domain.ErrNotFound.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	// Create assigns ID, CreatedAt and UpdatedAt on p.
	Create(ctx context.Context, p *domain.Product) error
	Count(ctx context.Context) (int64, error)
	// DecreaseStock subtracts amount in one conditional update and returns
	// domain.ErrInsufficientStock when amount exceeds the current stock.
	DecreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error)
	IncreaseStock(ctx context.Context, id string, amount int) (*domain.Product, error)
}

// CartRepository stores line items partitioned by session id.
type CartRepository interface {
	// ListItems returns the items of a session ordered by creation.
	ListItems(ctx context.Context, sessionID string) ([]domain.LineItem, error)
	GetItem(ctx context.Context, sessionID, itemID string) (*domain.LineItem, error)
	// IncrementItem atomically adds item.Quantity to the (session, product) line
	// item, creating it from the item snapshot when absent. The increment only
	// applies when the resulting quantity is <= maxQuantity, otherwise it returns
	// domain.ErrInsufficientStock and nothing changes.
	IncrementItem(ctx context.Context, item domain.LineItem, maxQuantity int) (*domain.LineItem, error)
	SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) error
	// ClearSession deletes every item of the session and reports how many were removed.
	ClearSession(ctx context.Context, sessionID string) (int64, error)
}

type UserRepository interface {
	// Create returns domain.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Store bundles one backend's repositories. It is chosen once at startup.
type Store struct {
	Name     string
	Products ProductRepository
	Carts    CartRepository
	Users    UserRepository
	closer   func(ctx context.Context) error
}

func NewStore(name string, products ProductRepository, carts CartRepository, users UserRepository, closer func(ctx context.Context) error) *Store {
	return &Store{
		Name:     name,
		Products: products,
		Carts:    carts,
		Users:    users,
		closer:   closer,
	}
}

func (s *Store) Close(ctx context.Context) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(ctx)
}
