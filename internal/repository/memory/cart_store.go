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

type cartEntry struct {
	item domain.LineItem
	seq  uint64 // insertion order, breaks CreatedAt ties
}

// CartStore implements repository.CartRepository with in-memory storage.
// A single mutex makes every read-check-write atomic.
type CartStore struct {
	mu      sync.RWMutex
	items   map[string]*cartEntry // itemID -> entry
	byKey   map[string]string     // session+product -> itemID
	nextSeq uint64
	now     func() time.Time
}

func NewCartStore() *CartStore {
	return &CartStore{
		items: make(map[string]*cartEntry),
		byKey: make(map[string]string),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func itemKey(sessionID, productID string) string {
	return sessionID + "\x00" + productID
}

func (s *CartStore) ListItems(_ context.Context, sessionID string) ([]domain.LineItem, error) {
	s.mu.RLock()
	entries := make([]*cartEntry, 0)
	for _, e := range s.items {
		if e.item.SessionID == sessionID {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	items := make([]domain.LineItem, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return items, nil
}

func (s *CartStore) GetItem(_ context.Context, sessionID, itemID string) (*domain.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.items[itemID]
	if !exists || e.item.SessionID != sessionID {
		return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	item := e.item
	return &item, nil
}

func (s *CartStore) IncrementItem(_ context.Context, item domain.LineItem, maxQuantity int) (*domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := itemKey(item.SessionID, item.ProductID)

	if id, exists := s.byKey[key]; exists {
		e := s.items[id]
		if item.Quantity > maxQuantity || e.item.Quantity > maxQuantity-item.Quantity {
			return nil, domain.ErrInsufficientStock
		}
		e.item.Quantity += item.Quantity
		e.item.UpdatedAt = now
		updated := e.item
		return &updated, nil
	}

	if item.Quantity > maxQuantity {
		return nil, domain.ErrInsufficientStock
	}

	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.nextSeq++
	s.items[item.ID] = &cartEntry{item: item, seq: s.nextSeq}
	s.byKey[key] = item.ID
	return &item, nil
}

func (s *CartStore) SetQuantity(_ context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.items[itemID]
	if !exists || e.item.SessionID != sessionID {
		return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	e.item.Quantity = quantity
	e.item.UpdatedAt = s.now()
	updated := e.item
	return &updated, nil
}

func (s *CartStore) RemoveItem(_ context.Context, sessionID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.items[itemID]
	if !exists || e.item.SessionID != sessionID {
		return fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	delete(s.items, itemID)
	delete(s.byKey, itemKey(e.item.SessionID, e.item.ProductID))
	return nil
}

func (s *CartStore) ClearSession(_ context.Context, sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, e := range s.items {
		if e.item.SessionID == sessionID {
			delete(s.items, id)
			delete(s.byKey, itemKey(e.item.SessionID, e.item.ProductID))
			removed++
		}
	}
	return removed, nil
}
