package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"stockroom/internal/metrics"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event publisher is closed")

// ErrQueueFull is returned by Publish when the outbound queue is full.
var ErrQueueFull = errors.New("event queue is full")

const writeTimeout = 10 * time.Second

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them from a single
// goroutine, so Publish never waits on the broker.
type KafkaPublisher struct {
	w        messageWriter
	producer string
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

// NewKafkaPublisher creates a publisher writing to topic on brokers and
// starts its delivery loop.
func NewKafkaPublisher(brokers []string, topic, producer string, queueSize int, m *metrics.Metrics, logger zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaPublisher(w, producer, queueSize, m, logger)
}

func newKafkaPublisher(w messageWriter, producer string, queueSize int, m *metrics.Metrics, logger zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		w:        w,
		producer: producer,
		logger:   logger.With().Str("component", "event_publisher").Logger(),
		metrics:  m,
		inbox:    make(chan kafka.Message, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues an event. It fails fast when the queue is full or the
// publisher is closed.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	env, err := NewEnvelope(ctx, p.producer, eventType, key, payload)
	if err != nil {
		return err
	}

	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(eventType)},
			{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.inbox <- msg:
		p.metrics.EventPublished(eventType, "queued")
		return nil
	default:
		p.metrics.EventPublished(eventType, "dropped")
		p.logger.Warn().Str("event_type", eventType).Str("key", key).Msg("event queue full, dropping event")
		return ErrQueueFull
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)

	for msg := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := p.w.WriteMessages(ctx, msg)
		cancel()

		eventType := headerValue(msg, "x-event-type")
		if err != nil {
			p.metrics.EventPublished(eventType, "failed")
			p.logger.Error().Err(err).
				Str("event_type", eventType).
				Str("key", string(msg.Key)).
				Msg("failed to write event")
			continue
		}
		p.metrics.EventPublished(eventType, "delivered")
	}

	if err := p.w.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close kafka writer")
	}
}

// Close stops accepting events, flushes the queue and closes the writer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()

	<-p.done
	return nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
