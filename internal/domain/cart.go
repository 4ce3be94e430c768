package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product-quantity pairing inside a session's cart.
//
// Name, Price and Image are copied from the product when the item is first
// added. Later catalog price changes never touch an existing line item.
type LineItem struct {
	ID        string          `json:"_id"`
	SessionID string          `json:"sessionId"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// NewLineItem snapshots p into a line item of the given quantity.
func NewLineItem(sessionID string, p Product, quantity int) LineItem {
	return LineItem{
		SessionID: sessionID,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
	}
}

// Cart is the read model of a session: its items plus aggregates derived from them.
type Cart struct {
	SessionID string
	Items     []LineItem
	Total     decimal.Decimal
	ItemCount int
}

// NewCart computes Total and ItemCount from items. Nothing is cached between reads.
func NewCart(sessionID string, items []LineItem) Cart {
	if items == nil {
		items = []LineItem{}
	}
	total := decimal.Zero
	count := 0
	for _, it := range items {
		total = total.Add(it.Subtotal())
		count += it.Quantity
	}
	return Cart{
		SessionID: sessionID,
		Items:     items,
		Total:     total,
		ItemCount: count,
	}
}
