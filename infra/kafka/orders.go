package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"depthfeed/domain/depth"
	"depthfeed/domain/orderbook"
)

var ErrBadOrder = errors.New("kafka: malformed order")

// Order is the JSON shape of an order on the intake topic.
type Order struct {
	Symbol string `json:"symbol"`
	Side   string `json:"side"`
	Type   string `json:"type,omitempty"`
	Price  int64  `json:"price"`
	Qty    int64  `json:"qty"`
}

// Request converts o into the matching engine's terms.
func (o Order) Request() (sym depth.Symbol, side orderbook.Side, typ orderbook.OrderType, err error) {
	if o.Symbol == "" || o.Qty <= 0 {
		return "", 0, 0, fmt.Errorf("%w: %+v", ErrBadOrder, o)
	}

	switch strings.ToLower(o.Side) {
	case "buy", "bid":
		side = orderbook.Bid
	case "sell", "ask":
		side = orderbook.Ask
	default:
		return "", 0, 0, fmt.Errorf("%w: side %q", ErrBadOrder, o.Side)
	}

	switch strings.ToLower(o.Type) {
	case "", "limit":
		typ = orderbook.Limit
		if o.Price <= 0 {
			return "", 0, 0, fmt.Errorf("%w: limit order without price", ErrBadOrder)
		}
	case "market":
		typ = orderbook.Market
	default:
		return "", 0, 0, fmt.Errorf("%w: type %q", ErrBadOrder, o.Type)
	}

	return depth.Symbol(o.Symbol), side, typ, nil
}

func ParseOrder(b []byte) (Order, error) {
	var o Order
	if err := json.Unmarshal(b, &o); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrBadOrder, err)
	}
	if _, _, _, err := o.Request(); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ---------- Reader ----------

// OrderReader consumes the order intake topic as part of a consumer group.
type OrderReader struct {
	reader *kafka.Reader
}

func NewOrderReader(brokers []string, topic, group string) *OrderReader {
	return &OrderReader{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 1 << 20,
			MaxWait:  100 * time.Millisecond,
		}),
	}
}

// Run delivers every well-formed order to fn until ctx is cancelled.
// Malformed messages are logged and skipped.
func (r *OrderReader) Run(ctx context.Context, fn func(Order)) error {
	for {
		m, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		o, err := ParseOrder(m.Value)
		if err != nil {
			log.Printf("[kafka] skip offset %d: %v", m.Offset, err)
			continue
		}
		fn(o)
	}
}

func (r *OrderReader) Close() error {
	return r.reader.Close()
}

// ---------- Writer ----------

// MessageWriter is the part of *kafka.Writer the order writer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderWriter publishes orders onto the intake topic, keyed by symbol.
type OrderWriter struct {
	writer MessageWriter
}

func NewOrderWriter(brokers []string, topic string) *OrderWriter {
	return NewOrderWriterWith(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	})
}

func NewOrderWriterWith(w MessageWriter) *OrderWriter {
	return &OrderWriter{writer: w}
}

// Send validates o before writing it, so the reader never sees an order
// this process produced and cannot parse.
func (w *OrderWriter) Send(ctx context.Context, o Order) error {
	if _, _, _, err := o.Request(); err != nil {
		return err
	}
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(o.Symbol),
		Value: b,
	})
}

func (w *OrderWriter) Close() error {
	return w.writer.Close()
}
