package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/events"
	"github.com/fjod/go_shop/internal/repository"
	"golang.org/x/sync/singleflight"
)

const generationStripes = 256

type CartService struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	cache    cache.CartCache
	events   events.Publisher
	sfg      singleflight.Group // Prevents cache stampede
	log      *slog.Logger

	// generations counts mutations per session stripe so that a read racing
	// a mutation never leaves a stale cart in the cache.
	generations [generationStripes]atomic.Uint64
}

func NewCartService(
	products repository.ProductRepository,
	carts repository.CartRepository,
	cartCache cache.CartCache,
	publisher events.Publisher,
	log *slog.Logger,
) *CartService {
	if cartCache == nil {
		cartCache = cache.NoopCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &CartService{
		products: products,
		carts:    carts,
		cache:    cartCache,
		events:   publisher,
		log:      log.With("component", "cart"),
	}
}

// AddItem adds quantity of the product to the session's cart and reports
// whether a new line item was created. The resulting quantity may not exceed
// the product's current stock.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.LineItem, bool, error) {
	if quantity < 1 {
		return nil, false, domain.NewValidationError("Quantity must be at least 1")
	}

	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if quantity > p.Stock {
		return nil, false, domain.ErrInsufficientStock
	}

	item, err := s.carts.IncrementItem(ctx, domain.NewLineItem(sessionID, *p, quantity), p.Stock)
	if err != nil {
		return nil, false, err
	}
	created := item.Quantity == quantity

	s.invalidateCache(ctx, sessionID)
	eventType := events.CartItemUpdated
	if created {
		eventType = events.CartItemAdded
	}
	s.publish(ctx, events.CartEvent{
		Type:      eventType,
		SessionID: sessionID,
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	})
	return item, created, nil
}

// SetQuantity replaces the quantity of a line item. Zero removes the item and
// returns (nil, nil), also when it is already gone.
func (s *CartService) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error) {
	if quantity < 0 {
		return nil, domain.NewValidationError("Quantity must be positive")
	}
	if quantity == 0 {
		err := s.RemoveItem(ctx, sessionID, itemID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, nil
	}

	current, err := s.carts.GetItem(ctx, sessionID, itemID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, current.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product of cart item: %w", err)
	}
	if quantity > p.Stock {
		return nil, domain.ErrInsufficientStock
	}

	item, err := s.carts.SetQuantity(ctx, sessionID, itemID, quantity)
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, sessionID)
	s.publish(ctx, events.CartEvent{
		Type:      events.CartItemUpdated,
		SessionID: sessionID,
		ItemID:    item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	})
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	if err := s.carts.RemoveItem(ctx, sessionID, itemID); err != nil {
		return err
	}

	s.invalidateCache(ctx, sessionID)
	s.publish(ctx, events.CartEvent{
		Type:      events.CartItemRemoved,
		SessionID: sessionID,
		ItemID:    itemID,
	})
	return nil
}

func (s *CartService) GetItem(ctx context.Context, sessionID, itemID string) (*domain.LineItem, error) {
	return s.carts.GetItem(ctx, sessionID, itemID)
}

// GetCart serves the session's items from the cache when possible. Totals are
// always recomputed from the items.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		items, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return items, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WarnContext(ctx, "cache get error", "session_id", sessionID, "error", err)
		}

		gen := s.generation(sessionID).Load()
		items, err = s.carts.ListItems(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		s.fillCache(ctx, sessionID, items, gen)
		return items, nil
	})
	if err != nil {
		return domain.Cart{}, err
	}

	return domain.NewCart(sessionID, v.([]domain.LineItem)), nil
}

// ClearCart removes every item of the session and reports how many were removed.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (int64, error) {
	removed, err := s.carts.ClearSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	s.invalidateCache(ctx, sessionID)
	s.publish(ctx, events.CartEvent{
		Type:      events.CartCleared,
		SessionID: sessionID,
		Quantity:  int(removed),
	})
	return removed, nil
}

func (s *CartService) generation(sessionID string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.generations[h.Sum32()%generationStripes]
}

// fillCache stores items read at generation gen. A mutation that bumped the
// generation in the meantime either sees the entry and deletes it itself, or
// is caught by the second check here.
func (s *CartService) fillCache(ctx context.Context, sessionID string, items []domain.LineItem, gen uint64) {
	counter := s.generation(sessionID)
	if counter.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, sessionID, items); err != nil {
		s.log.WarnContext(ctx, "cache set error", "session_id", sessionID, "error", err)
		return
	}
	if counter.Load() != gen {
		s.invalidateCache(ctx, sessionID)
	}
}

func (s *CartService) invalidateCache(ctx context.Context, sessionID string) {
	s.generation(sessionID).Add(1)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.WarnContext(ctx, "cache invalidate error", "session_id", sessionID, "error", err)
	}
}

func (s *CartService) publish(ctx context.Context, event events.CartEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.WarnContext(ctx, "cart event not published", "type", event.Type, "session_id", event.SessionID, "error", err)
	}
}
