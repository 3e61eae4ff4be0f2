package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mentorship-system/internal/queue"
)

// Notifier delivers notification events. Delivery is best effort: the
// services call it after commit and only log failures.
type Notifier interface {
	Notify(ctx context.Context, ev queue.NotificationEvent) error
}

// LogNotifier writes notifications to the process log. It is used when
// MOCK_EMAIL is set.
type LogNotifier struct {
	Logger *log.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev queue.NotificationEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	logger := n.Logger
	if logger == nil {
		logger = log.Default()
	}
	return queue.WriteMail(logger.Writer(), ev)
}

// notifyTimeout caps a single delivery attempt.
var notifyTimeout = 3 * time.Second

// notify sends ev and logs a failure. It never returns an error. Delivery
// is detached from the caller's cancellation and bounded by notifyTimeout.
func notify(ctx context.Context, n Notifier, ev queue.NotificationEvent) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := n.Notify(ctx, ev); err != nil {
		log.Printf("notifier: %s for user %d failed: %v", ev.Kind, ev.RecipientID, err)
	}
}
