package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), CartEvent{
		Type:      CartItemAdded,
		SessionID: "s1",
		ItemID:    "i1",
		ProductID: "p1",
		Quantity:  2,
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "s1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "cart.item_added", string(msg.Headers[0].Value))

	var event CartEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, CartItemAdded, event.Type)
	assert.Equal(t, 2, event.Quantity)
	assert.True(t, fixed.Equal(event.OccurredAt))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w)

	err := p.Publish(context.Background(), CartEvent{Type: CartCleared, SessionID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart.cleared")
}

type fakeReader struct {
	ch chan kafka.Message
}

func newFakeReader(values ...[]byte) *fakeReader {
	r := &fakeReader{ch: make(chan kafka.Message, len(values))}
	for i, v := range values {
		r.ch <- kafka.Message{Offset: int64(i), Value: v}
	}
	return r
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.ch:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) Close() error { return nil }

type fakeAdjuster struct {
	mu    sync.Mutex
	stock map[string]int
	calls int
}

func (a *fakeAdjuster) IncreaseStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if _, ok := a.stock[id]; !ok {
		return nil, domain.ErrNotFound
	}
	a.stock[id] += amount
	return &domain.Product{ID: id, Stock: a.stock[id]}, nil
}

func (a *fakeAdjuster) DecreaseStock(_ context.Context, id string, amount int) (*domain.Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	current, ok := a.stock[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if current < amount {
		return nil, domain.ErrInsufficientStock
	}
	a.stock[id] -= amount
	return &domain.Product{ID: id, Stock: a.stock[id]}, nil
}

func (a *fakeAdjuster) snapshot() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stock["p1"], a.calls
}

func adjustment(t *testing.T, productID string, op StockOperation, amount int) []byte {
	t.Helper()
	data, err := json.Marshal(StockAdjustment{ProductID: productID, Operation: op, Amount: amount})
	require.NoError(t, err)
	return data
}

func TestStockConsumer_AppliesAndSkips(t *testing.T) {
	adjuster := &fakeAdjuster{stock: map[string]int{"p1": 5}}
	reader := newFakeReader(
		adjustment(t, "p1", StockIncrease, 10),
		[]byte("{not json"),
		adjustment(t, "p1", StockDecrease, 100),
		adjustment(t, "missing", StockIncrease, 1),
		adjustment(t, "p1", "explode", 1),
		adjustment(t, "p1", StockDecrease, 3),
	)
	c := newStockConsumer(adjuster, reader, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, calls := adjuster.snapshot()
		return calls == 4
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}

	stock, _ := adjuster.snapshot()
	assert.Equal(t, 12, stock, "5 + 10 - 3; the oversized decrease is rejected")
}

func TestStockConsumer_ApplyErrors(t *testing.T) {
	c := newStockConsumer(&fakeAdjuster{stock: map[string]int{}}, newFakeReader(), logger.Discard())
	ctx := context.Background()

	assert.ErrorContains(t, c.apply(ctx, []byte(`{"operation":"increase","amount":1}`)), "missing product_id")
	assert.ErrorIs(t, c.apply(ctx, adjustment(t, "nope", StockIncrease, 1)), domain.ErrNotFound)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), CartEvent{Type: CartCleared}))
	assert.NoError(t, p.Close())
}
