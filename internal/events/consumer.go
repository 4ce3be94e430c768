package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_shop/internal/domain"
	"github.com/segmentio/kafka-go"
)

type StockOperation string

const (
	StockIncrease StockOperation = "increase"
	StockDecrease StockOperation = "decrease"
)

// StockAdjustment is the payload of the stock adjustments topic.
type StockAdjustment struct {
	ProductID string         `json:"product_id"`
	Operation StockOperation `json:"operation"`
	Amount    int            `json:"amount"`
}

type StockAdjuster interface {
	IncreaseStock(ctx context.Context, productID string, amount int) (*domain.Product, error)
	DecreaseStock(ctx context.Context, productID string, amount int) (*domain.Product, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type StockConsumer struct {
	adjuster StockAdjuster
	reader   messageReader
	log      *slog.Logger
	backoff  time.Duration
}

func NewStockConsumer(adjuster StockAdjuster, log *slog.Logger, topic, groupID string, brokers ...string) *StockConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newStockConsumer(adjuster, reader, log)
}

func newStockConsumer(adjuster StockAdjuster, reader messageReader, log *slog.Logger) *StockConsumer {
	return &StockConsumer{
		adjuster: adjuster,
		reader:   reader,
		log:      log.With("component", "stock_consumer"),
		backoff:  time.Second,
	}
}

// Run reads until ctx is cancelled. Bad messages are logged and skipped.
func (c *StockConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *StockConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error("error closing kafka reader", "error", err)
	}
}

func (c *StockConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error("error reading message", "error", err)
		select {
		case <-time.After(c.backoff):
		case <-ctx.Done():
		}
		return
	}

	if err := c.apply(ctx, m.Value); err != nil {
		c.log.Warn("stock adjustment skipped",
			"partition", m.Partition,
			"offset", m.Offset,
			"error", err)
	}
}

func (c *StockConsumer) apply(ctx context.Context, value []byte) error {
	var adj StockAdjustment
	if err := json.Unmarshal(value, &adj); err != nil {
		return fmt.Errorf("error parsing message: %w", err)
	}
	if adj.ProductID == "" {
		return errors.New("missing product_id")
	}

	var (
		p   *domain.Product
		err error
	)
	switch adj.Operation {
	case StockIncrease:
		p, err = c.adjuster.IncreaseStock(ctx, adj.ProductID, adj.Amount)
	case StockDecrease:
		p, err = c.adjuster.DecreaseStock(ctx, adj.ProductID, adj.Amount)
	default:
		return fmt.Errorf("unknown operation %q", adj.Operation)
	}
	if err != nil {
		return fmt.Errorf("failed to %s stock of %s: %w", adj.Operation, adj.ProductID, err)
	}

	c.log.Info("stock adjusted",
		"product_id", p.ID,
		"operation", adj.Operation,
		"amount", adj.Amount,
		"stock", p.Stock)
	return nil
}
