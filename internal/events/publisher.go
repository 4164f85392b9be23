package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"petwalk/pkg/domain"
)

// Routing keys for walk request lifecycle events.
const (
	RequestCreated   = "request.created"
	RequestConfirmed = "request.confirmed"
	RequestCancelled = "request.cancelled"
	RequestCompleted = "request.completed"
)

// Event is the published message envelope.
type Event struct {
	ID         string             `json:"id"`
	Kind       string             `json:"kind"`
	Request    domain.WalkRequest `json:"request"`
	OccurredAt time.Time          `json:"occurredAt"`
}

// Publisher emits walk request lifecycle events to a RabbitMQ topic
// exchange. A nil Publisher is valid and drops all events.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
}

// NewPublisher connects to RabbitMQ and declares the exchange.
// Empty url disables publishing (returns nil, nil).
func NewPublisher(url, exchange string) (*Publisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = "petwalk.requests"
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	p.conn = conn
	p.channel = channel
	return nil
}

// Publish emits one lifecycle event. Failures are logged, never returned:
// event delivery is best-effort and must not fail the mutation.
func (p *Publisher) Publish(ctx context.Context, kind string, req domain.WalkRequest) {
	if p == nil {
		return
	}
	event := Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Request:    req,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		slog.Warn("event encode failed", "kind", kind, "err", err)
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   event.ID,
		Timestamp:   event.OccurredAt,
		Body:        body,
	})
	if err != nil {
		slog.Warn("event publish failed", "kind", kind, "request_id", req.ID, "err", err)
	}
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
