package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/google/uuid"
)

const cartColumns = "id, session_id, product_id, name, price, image, quantity, created_at, updated_at"

type CartRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db, now: now}
}

func scanItem(row scanner) (*domain.LineItem, error) {
	var item domain.LineItem
	err := row.Scan(
		&item.ID,
		&item.SessionID,
		&item.ProductID,
		&item.Name,
		&item.Price,
		&item.Image,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

func (r *CartRepository) ListItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE session_id = $1 ORDER BY created_at ASC, id ASC",
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LineItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}
	return items, nil
}

func (r *CartRepository) GetItem(ctx context.Context, sessionID, itemID string) (*domain.LineItem, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+cartColumns+" FROM cart_items WHERE id = $1 AND session_id = $2",
		itemID, sessionID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	return item, nil
}

// IncrementItem is one upsert. The conflict branch only fires while the summed
// quantity stays within maxQuantity, so a rejected increment returns no row.
func (r *CartRepository) IncrementItem(ctx context.Context, item domain.LineItem, maxQuantity int) (*domain.LineItem, error) {
	if item.Quantity > maxQuantity {
		return nil, domain.ErrInsufficientStock
	}
	// v7 ids are time ordered, so same-timestamp rows still list in insertion order.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cart item id: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO cart_items (`+cartColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 ON CONFLICT (session_id, product_id) DO UPDATE
		 SET quantity = cart_items.quantity + excluded.quantity,
		     updated_at = excluded.updated_at
		 WHERE cart_items.quantity <= $9 - excluded.quantity
		 RETURNING `+cartColumns,
		id.String(), item.SessionID, item.ProductID, item.Name, item.Price, item.Image, item.Quantity, r.now(),
		maxQuantity)

	updated, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return updated, nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE cart_items SET quantity = $3, updated_at = $4
		 WHERE id = $1 AND session_id = $2
		 RETURNING `+cartColumns,
		itemID, sessionID, quantity, r.now())
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND session_id = $2", itemID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (r *CartRepository) ClearSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE session_id = $1", sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
