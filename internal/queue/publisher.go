package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends notification events to RabbitMQ. It dials per publish;
// notifications are rare enough that a pooled connection is not worth the
// reconnect bookkeeping. Errors are logged and returned so the caller can
// ignore them without interrupting the request flow.
type Publisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
}

// DefaultDialTimeout bounds the TCP connect and AMQP handshake. Publishing
// happens on the request path, so a dead broker must fail fast.
const DefaultDialTimeout = 2 * time.Second

func NewPublisher(url string) *Publisher {
	return &Publisher{url: url, queue: NotificationsQueue, dialTimeout: DefaultDialTimeout}
}

// WithDialTimeout overrides DefaultDialTimeout.
func (p *Publisher) WithDialTimeout(d time.Duration) *Publisher {
	p.dialTimeout = d
	return p
}

func (p *Publisher) dial() (*amqp.Connection, error) {
	return amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
}

// Notify publishes ev as a persistent JSON message. Missing ids and
// timestamps are filled in.
func (p *Publisher) Notify(ctx context.Context, ev NotificationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}

	conn, err := p.dial()
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", ev.Kind, err)
		return err
	}
	return nil
}
