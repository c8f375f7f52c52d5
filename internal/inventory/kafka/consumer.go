package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/warehouse-platform/goods-service/internal/inventory/domain"
	"github.com/warehouse-platform/goods-service/pkg/tracing"
)

const (
	eventTypeHeader    = "event_type"
	eventOrderPlaced   = "OrderPlaced"
	eventOrderCanceled = "OrderCanceled"
)

// Reserver is the slice of the coordinator the consumer needs.
type Reserver interface {
	ReserveOrRelease(ctx context.Context, productID, change int64) (*domain.ReservationAdjustment, error)
}

// SeenStore deduplicates messages across restarts and rebalances.
type SeenStore interface {
	Key(topic string, partition int, offset int64) string
	Seen(ctx context.Context, key string) (bool, error)
}

// Reader matches *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer applies order lifecycle events to the reservation counter:
// OrderPlaced reserves each line, OrderCanceled releases it.
type Consumer struct {
	log    *slog.Logger
	reader Reader
	svc    Reserver
	idem   SeenStore
	tracer trace.Tracer
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc Reserver, idem SeenStore) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return newConsumer(log, r, svc, idem)
}

func newConsumer(log *slog.Logger, reader Reader, svc Reserver, idem SeenStore) *Consumer {
	return &Consumer{
		log:    log,
		reader: reader,
		svc:    svc,
		idem:   idem,
		tracer: otel.Tracer("order-events-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
		seen, err := c.idem.Seen(ctx, key)
		if err != nil {
			c.log.Error("idempotency check failed", "err", err)
			continue
		}
		if seen {
			c.log.Info("duplicate message skipped", "key", key)
			_ = c.reader.CommitMessages(ctx, msg)
			continue
		}

		msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
		c.handle(msgCtx, msg)
		_ = c.reader.CommitMessages(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	eventType := headerValue(msg.Headers, eventTypeHeader)
	ctx, span := c.tracer.Start(ctx, "Consume"+eventType)
	defer span.End()

	switch eventType {
	case eventOrderPlaced:
		var ev domain.OrderPlaced
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal OrderPlaced failed", "err", err)
			return
		}
		c.applyLines(ctx, ev.OrderID, ev.Lines, +1)
	case eventOrderCanceled:
		var ev domain.OrderCanceled
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Error("unmarshal OrderCanceled failed", "err", err)
			return
		}
		c.applyLines(ctx, ev.OrderID, ev.Lines, -1)
	default:
		c.log.Info("ignoring event", "type", eventType)
	}
}

// applyLines adjusts one reservation per order line. A rejected line is
// logged and skipped; the orders service owns compensation for partial
// reservations.
func (c *Consumer) applyLines(ctx context.Context, orderID string, lines []domain.OrderLine, sign int64) {
	for _, line := range lines {
		if _, err := c.svc.ReserveOrRelease(ctx, line.ProductID, sign*line.Quantity); err != nil {
			c.log.Error("reservation adjustment rejected",
				"order_id", orderID, "product_id", line.ProductID,
				"change", sign*line.Quantity, "err", err)
			continue
		}
		c.log.Info("order line applied",
			"order_id", orderID, "product_id", line.ProductID, "change", sign*line.Quantity)
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
