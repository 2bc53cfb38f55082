package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/queue"
)

// DeliveryTaskKind is the queue kind used for notification deliveries.
const DeliveryTaskKind = "notification-delivery"

// Dispatcher reacts to domain events by recording a pending notification and
// scheduling its delivery. It implements events.Notifier.
type Dispatcher struct {
	Store        Store
	Queue        queue.Enqueuer
	Recipient    string
	Enabled      bool
	TopicToggles map[string]bool
	MaxAttempts  int
	Logger       zerolog.Logger
}

// Notify records the notification and enqueues a delivery task.
func (d Dispatcher) Notify(ctx context.Context, event events.Event) error {
	if !d.Enabled || d.Store == nil {
		return nil
	}
	// notification.sent itself is not notifiable, otherwise every delivery
	// would schedule another one
	if !notifiableTopic(event.Topic) {
		return nil
	}
	if d.TopicToggles != nil {
		if enabled, ok := d.TopicToggles[event.Topic]; ok && !enabled {
			return nil
		}
	}
	recipient := strings.TrimSpace(d.Recipient)
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("notify: decode event payload: %w", err)
		}
	}
	if override := stringField(payload, "recipient"); override != "" {
		recipient = override
	}
	if recipient == "" {
		return nil
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	record, err := d.Store.Insert(ctx, Notification{
		EventID:   event.ID,
		Topic:     event.Topic,
		Recipient: recipient,
		Subject:   subjectFor(event.Topic, payload),
		Body:      bodyFor(event.Topic, payload, occurred),
	})
	if err != nil {
		return fmt.Errorf("notify: record notification: %w", err)
	}

	maxAttempts := d.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	err = d.Queue.Enqueue(ctx, queue.Task{
		Kind:        DeliveryTaskKind,
		Payload:     []byte(record.ID.String()),
		DedupKey:    record.ID.String(),
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		d.Logger.Warn().Err(err).Str("notification_id", record.ID.String()).Msg("delivery enqueue failed")
		return fmt.Errorf("notify: enqueue delivery: %w", err)
	}
	return nil
}

func notifiableTopic(topic string) bool {
	for _, t := range events.DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
