package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Mailbox receives rendered notifications. The consumer only ships with a
// file-backed mailbox; real SMTP delivery lives outside this service.
type Mailbox interface {
	Deliver(ev NotificationEvent) error
}

// FileMailbox appends one line per email to a log file.
type FileMailbox struct {
	Path string
}

// Deliver appends ev to the mailbox file, creating its directory first.
func (m FileMailbox) Deliver(ev NotificationEvent) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir mailbox: %w", err)
	}
	f, err := os.OpenFile(m.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mailbox: %w", err)
	}
	defer f.Close()
	return WriteMail(f, ev)
}

// WriteMail renders ev as a single mock email line.
func WriteMail(w io.Writer, ev NotificationEvent) error {
	line := fmt.Sprintf("[%s] Mock email | id=%s | kind=%s | to=%q <%s> | subject=%q",
		ev.OccurredAt, ev.ID, ev.Kind, ev.RecipientName, ev.RecipientEmail, ev.Subject())
	if ev.RelationID != 0 {
		line += fmt.Sprintf(" | relation_id=%d | from=%q", ev.RelationID, ev.ActorName)
	}
	if ev.Token != "" {
		line += " | token=" + ev.Token
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("write mail: %w", err)
	}
	return nil
}

// Consumer drains the notifications queue into a Mailbox.
type Consumer struct {
	url     string
	mailbox Mailbox
}

func NewConsumer(url string, mailbox Mailbox) *Consumer {
	return &Consumer{url: url, mailbox: mailbox}
}

// Run connects, consumes and reconnects with backoff until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(NotificationsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				log.Printf("notification-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.mailbox.Deliver(ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
