// Package events publishes domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Event types.
const (
	AcknowledgmentSubmitted = "acknowledgment.submitted"
	AcknowledgmentsPurged   = "acknowledgment.month_purged"
	AllocationCreated       = "nfc.allocated"
)

// DefaultExchange is the topic exchange events are published to.
const DefaultExchange = "octane.events"

// Event is the envelope published for every domain event.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// New builds an event envelope.
func New(eventType string, payload any) Event {
	return Event{ID: uuid.NewString(), Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher sends domain events.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop drops events. Used when no broker is configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// RabbitPublisher publishes JSON events to a durable topic exchange using the
// event type as routing key.
type RabbitPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *slog.Logger
	mu       sync.Mutex
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(amqpURL, exchange string, logger *slog.Logger) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	return &RabbitPublisher{conn: conn, channel: channel, exchange: exchange, logger: logger}, nil
}

// Publish implements Publisher.
func (p *RabbitPublisher) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", evt.Type, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, evt.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Type:         evt.Type,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("events: publish %s: %w", evt.Type, err)
	}
	if p.logger != nil {
		p.logger.Debug("event published", slog.String("type", evt.Type), slog.String("id", evt.ID))
	}
	return nil
}

// Close closes the channel and connection.
func (p *RabbitPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("events: parse url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("events: AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// Emit publishes evt and logs failures instead of returning them.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, evt Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, evt); err != nil && logger != nil {
		logger.Warn("publish event failed", slog.String("type", evt.Type), slog.Any("error", err))
	}
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*RabbitPublisher)(nil)
)
