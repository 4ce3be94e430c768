package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type lineItemDocument struct {
	ID        primitive.ObjectID   `bson:"_id"`
	SessionID string               `bson:"session_id"`
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	Image     string               `bson:"image"`
	Quantity  int                  `bson:"quantity"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

func (d lineItemDocument) toDomain() domain.LineItem {
	return domain.LineItem{
		ID:        d.ID.Hex(),
		SessionID: d.SessionID,
		ProductID: d.ProductID,
		Name:      d.Name,
		Price:     fromDecimal128(d.Price),
		Image:     d.Image,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection(cartCollection)}
}

func (r *CartRepository) ListItems(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer cursor.Close(ctx)

	items := make([]domain.LineItem, 0)
	for cursor.Next(ctx) {
		var doc lineItemDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode cart item: %w", err)
		}
		items = append(items, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}
	return items, nil
}

func (r *CartRepository) GetItem(ctx context.Context, sessionID, itemID string) (*domain.LineItem, error) {
	oid, err := objectID("cart item", itemID)
	if err != nil {
		return nil, err
	}

	var doc lineItemDocument
	err = r.collection.FindOne(ctx, bson.M{"_id": oid, "session_id": sessionID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}

	item := doc.toDomain()
	return &item, nil
}

// IncrementItem upserts on (session_id, product_id) with a quantity bound in
// the filter. When an existing item would exceed maxQuantity the filter misses,
// the upsert collides with the unique index, and a plain update decides.
// The same path covers two sessions racing to insert the first item.
func (r *CartRepository) IncrementItem(ctx context.Context, item domain.LineItem, maxQuantity int) (*domain.LineItem, error) {
	if item.Quantity > maxQuantity {
		return nil, domain.ErrInsufficientStock
	}

	price, err := toDecimal128(item.Price)
	if err != nil {
		return nil, err
	}

	ts := now()
	filter := bson.M{
		"session_id": item.SessionID,
		"product_id": item.ProductID,
		"quantity":   bson.M{"$lte": maxQuantity - item.Quantity},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": item.Quantity},
		"$set": bson.M{"updated_at": ts},
		"$setOnInsert": bson.M{
			"name":       item.Name,
			"price":      price,
			"image":      item.Image,
			"created_at": ts,
		},
	}

	doc, err := r.findOneAndUpdate(ctx, filter, update, true)
	if err == nil {
		return doc, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}

	doc, err = r.findOneAndUpdate(ctx, filter, update, false)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("failed to increment cart item: %w", err)
	}
	return doc, nil
}

func (r *CartRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, upsert bool) (*domain.LineItem, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)

	var doc lineItemDocument
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	item := doc.toDomain()
	return &item, nil
}

func (r *CartRepository) SetQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.LineItem, error) {
	oid, err := objectID("cart item", itemID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid, "session_id": sessionID}
	update := bson.M{"$set": bson.M{"quantity": quantity, "updated_at": now()}}

	item, err := r.findOneAndUpdate(ctx, filter, update, false)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	return item, nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, sessionID, itemID string) error {
	oid, err := objectID("cart item", itemID)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("cart item %q: %w", itemID, domain.ErrNotFound)
	}
	return nil
}

func (r *CartRepository) ClearSession(ctx context.Context, sessionID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}
	return result.DeletedCount, nil
}
