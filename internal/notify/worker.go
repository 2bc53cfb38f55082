package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/common"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/obs"
	"github.com/impexflow/backend-impex/internal/queue"
)

// DeliveryHandler returns a queue handler that sends a recorded notification
// by email. Task payloads carry the notification ID. When recorder is
// non-nil, each successful send leaves a notification.sent domain event.
func DeliveryHandler(store Store, mail common.EmailSender, recorder events.Store, logger zerolog.Logger) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		id, err := uuid.Parse(strings.TrimSpace(string(task.Payload)))
		if err != nil {
			// unparseable payloads can never succeed, drop without retry
			logger.Error().Str("payload", string(task.Payload)).Msg("malformed delivery task payload")
			return nil
		}
		record, err := store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				logger.Warn().Str("notification_id", id.String()).Msg("notification vanished before delivery")
				return nil
			}
			return fmt.Errorf("notify: load notification: %w", err)
		}
		if record.Status == StatusSent {
			return nil
		}

		attempts := record.Attempts + 1
		if mail == nil {
			return errors.New("notify: email sender not configured")
		}
		if err := mail.Send(record.Recipient, record.Subject, record.Body); err != nil {
			countDelivery("error")
			if markErr := store.MarkFailed(ctx, id, attempts, err.Error()); markErr != nil {
				logger.Warn().Err(markErr).Str("notification_id", id.String()).Msg("mark failed errored")
			}
			return fmt.Errorf("notify: send email: %w", err)
		}
		if err := store.MarkSent(ctx, id, attempts); err != nil {
			logger.Warn().Err(err).Str("notification_id", id.String()).Msg("mark sent errored")
		}
		countDelivery("ok")
		if recorder != nil {
			payload, _ := json.Marshal(map[string]any{
				"notification_id": record.ID,
				"topic":           record.Topic,
				"recipient":       record.Recipient,
			})
			if _, err := recorder.InsertEvent(ctx, events.TopicNotificationSent, record.ID, payload); err != nil {
				logger.Warn().Err(err).Str("notification_id", id.String()).Msg("record sent event errored")
			}
		}
		return nil
	}
}

// CountDeadLetter records a notification task that exhausted its retries.
func CountDeadLetter(string) {
	if obs.NotificationDLQTotal != nil {
		obs.NotificationDLQTotal.Inc()
	}
}

func countDelivery(result string) {
	if obs.NotificationDeliveryTotal != nil {
		obs.NotificationDeliveryTotal.WithLabelValues("email", result).Inc()
	}
}
