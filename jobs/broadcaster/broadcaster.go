package broadcaster

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/eapache/queue"

	"depthfeed/domain/depth"
	"depthfeed/infra/codec"
	"depthfeed/infra/sequence"
)

// DefaultTapeLimit bounds the tape while Kafka is unreachable; the oldest
// trades are dropped first.
const DefaultTapeLimit = 1 << 16

// Broadcaster mirrors the hub's trades onto a Kafka topic. Record is called
// from the hub loop; the Kafka side runs on its own goroutine.
type Broadcaster struct {
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	limit    int

	codec codec.Codec
	seq   *sequence.Sequencer

	mu      sync.Mutex
	tape    *queue.Queue
	dropped uint64
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProducer(producer, topic, interval), nil
}

func NewWithProducer(p sarama.SyncProducer, topic string, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		producer: p,
		topic:    topic,
		interval: interval,
		limit:    DefaultTapeLimit,
		seq:      sequence.New(0),
		tape:     queue.New(),
	}
}

// ------------------------------------------------
// TAPE
// ------------------------------------------------

// Record copies t onto the tape with its own tape sequence number.
func (b *Broadcaster) Record(t *depth.Trade) {
	rec := *t
	rec.Seq = b.seq.Next()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tape.Length() >= b.limit {
		b.tape.Remove()
		b.dropped++
	}
	b.tape.Add(&rec)
}

// Pending reports the number of trades waiting for Kafka.
func (b *Broadcaster) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tape.Length()
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

func (b *Broadcaster) Start(ctx context.Context) {
	log.Println("[broadcaster] started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := b.Flush(); err != nil {
					log.Printf("[broadcaster] flush: %v", err)
				}
			}
		}
	}()
}

// ------------------------------------------------
// FLUSH
// ------------------------------------------------

// Flush sends queued trades in order until the tape is empty or Kafka
// refuses one; the refused trade stays at the head for the next tick.
func (b *Broadcaster) Flush() (int, error) {
	sent := 0
	for {
		b.mu.Lock()
		if b.tape.Length() == 0 {
			b.mu.Unlock()
			return sent, nil
		}
		t := b.tape.Peek().(*depth.Trade)
		b.mu.Unlock()

		val, err := b.codec.Encode(nil, t, codec.TemplateTrade)
		if err != nil {
			return sent, err
		}
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(t.Symbol),
			Value: sarama.ByteEncoder(val),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			return sent, err
		}

		b.mu.Lock()
		// Record may have evicted t while we were sending
		if b.tape.Length() > 0 && b.tape.Peek() == t {
			b.tape.Remove()
		}
		b.mu.Unlock()
		sent++
	}
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	if n := b.Pending(); n > 0 {
		log.Printf("[broadcaster] closing with %d trades unsent", n)
	}
	return b.producer.Close()
}
