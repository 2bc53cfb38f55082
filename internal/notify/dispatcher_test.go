package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/common"
	"github.com/impexflow/backend-impex/internal/events"
	"github.com/impexflow/backend-impex/internal/queue"
)

type memStore struct {
	byID map[uuid.UUID]Notification
}

func newMemStore() *memStore {
	return &memStore{byID: make(map[uuid.UUID]Notification)}
}

func (m *memStore) Insert(_ context.Context, n Notification) (Notification, error) {
	n.ID = uuid.New()
	if n.Status == "" {
		n.Status = StatusPending
	}
	n.CreatedAt = time.Now().UTC()
	m.byID[n.ID] = n
	return n, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (Notification, error) {
	n, ok := m.byID[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (m *memStore) List(_ context.Context, status string, _, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.byID {
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, status string) (int64, error) {
	items, _ := m.List(ctx, status, 0, 0)
	return int64(len(items)), nil
}

func (m *memStore) MarkSent(_ context.Context, id uuid.UUID, attempts int) error {
	n, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	n.Status = StatusSent
	n.Attempts = attempts
	n.SentAt = &now
	m.byID[id] = n
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id uuid.UUID, attempts int, lastError string) error {
	n, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	n.Status = StatusFailed
	n.Attempts = attempts
	n.LastError = lastError
	m.byID[id] = n
	return nil
}

func newQueue(t *testing.T) (queue.Enqueuer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return queue.Enqueuer{Client: client, Prefix: "impex"}, client
}

func shipmentEvent(t *testing.T) events.Event {
	t.Helper()
	payload, err := json.Marshal(map[string]string{
		"reference": "SEA-0042",
		"status":    "AT_PORT",
		"location":  "Durban",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return events.Event{
		ID:          uuid.New(),
		Topic:       events.TopicShipmentStatusChanged,
		AggregateID: uuid.New(),
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
}

func TestDispatcherRecordsAndEnqueues(t *testing.T) {
	store := newMemStore()
	enq, client := newQueue(t)
	d := Dispatcher{
		Store:     store,
		Queue:     enq,
		Recipient: "imports@example.com",
		Enabled:   true,
		Logger:    zerolog.Nop(),
	}

	if err := d.Notify(context.Background(), shipmentEvent(t)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.byID) != 1 {
		t.Fatalf("notifications recorded = %d", len(store.byID))
	}
	for _, n := range store.byID {
		if n.Status != StatusPending {
			t.Fatalf("status = %s", n.Status)
		}
		if n.Recipient != "imports@example.com" {
			t.Fatalf("recipient = %s", n.Recipient)
		}
		if n.Subject != "Shipment at port SEA-0042" {
			t.Fatalf("subject = %q", n.Subject)
		}
	}
	size, err := client.ZCard(context.Background(), "impex:queue:notification-delivery").Result()
	if err != nil {
		t.Fatalf("zcard: %v", err)
	}
	if size != 1 {
		t.Fatalf("queue size = %d", size)
	}
}

func TestDispatcherDisabled(t *testing.T) {
	store := newMemStore()
	enq, _ := newQueue(t)
	d := Dispatcher{Store: store, Queue: enq, Recipient: "imports@example.com", Enabled: false}

	if err := d.Notify(context.Background(), shipmentEvent(t)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.byID) != 0 {
		t.Fatalf("disabled dispatcher recorded %d notifications", len(store.byID))
	}
}

func TestDispatcherIgnoresSentEvents(t *testing.T) {
	store := newMemStore()
	enq, _ := newQueue(t)
	d := Dispatcher{Store: store, Queue: enq, Recipient: "imports@example.com", Enabled: true}

	event := shipmentEvent(t)
	event.Topic = events.TopicNotificationSent
	if err := d.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.byID) != 0 {
		t.Fatalf("delivery receipt recorded %d notifications", len(store.byID))
	}
}

func TestDispatcherTopicToggle(t *testing.T) {
	store := newMemStore()
	enq, _ := newQueue(t)
	d := Dispatcher{
		Store:        store,
		Queue:        enq,
		Recipient:    "imports@example.com",
		Enabled:      true,
		TopicToggles: map[string]bool{events.TopicShipmentStatusChanged: false},
	}

	if err := d.Notify(context.Background(), shipmentEvent(t)); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(store.byID) != 0 {
		t.Fatalf("muted topic recorded %d notifications", len(store.byID))
	}
}

type recordingEvents struct {
	topics []string
}

func (r *recordingEvents) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	r.topics = append(r.topics, topic)
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now().UTC()}, nil
}

func TestDeliveryHandlerSendsEmail(t *testing.T) {
	store := newMemStore()
	mail := &common.InMemoryEmail{}
	recorder := &recordingEvents{}
	record, err := store.Insert(context.Background(), Notification{
		EventID:   uuid.New(),
		Topic:     events.TopicShipmentBooked,
		Recipient: "imports@example.com",
		Subject:   "Shipment booked SEA-0042",
		Body:      "body",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	handler := DeliveryHandler(store, mail, recorder, zerolog.Nop())
	if err := handler(context.Background(), queue.Task{Payload: []byte(record.ID.String())}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(mail.Outbox) != 1 {
		t.Fatalf("outbox = %d", len(mail.Outbox))
	}
	updated, _ := store.GetByID(context.Background(), record.ID)
	if updated.Status != StatusSent || updated.Attempts != 1 {
		t.Fatalf("record = %+v", updated)
	}
	if updated.SentAt == nil {
		t.Fatal("sent_at not stamped")
	}
	if len(recorder.topics) != 1 || recorder.topics[0] != events.TopicNotificationSent {
		t.Fatalf("sent events = %v", recorder.topics)
	}
}

type failingSender struct{}

func (failingSender) Send(string, string, string) error { return errors.New("smtp down") }

func TestDeliveryHandlerFailureMarksRecord(t *testing.T) {
	store := newMemStore()
	record, err := store.Insert(context.Background(), Notification{
		EventID:   uuid.New(),
		Topic:     events.TopicShipmentBooked,
		Recipient: "imports@example.com",
		Subject:   "subject",
		Body:      "body",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	handler := DeliveryHandler(store, failingSender{}, nil, zerolog.Nop())
	if err := handler(context.Background(), queue.Task{Payload: []byte(record.ID.String())}); err == nil {
		t.Fatal("expected error so the queue retries")
	}
	updated, _ := store.GetByID(context.Background(), record.ID)
	if updated.Status != StatusFailed || updated.LastError != "smtp down" {
		t.Fatalf("record = %+v", updated)
	}
}

func TestDeliveryHandlerSkipsSent(t *testing.T) {
	store := newMemStore()
	mail := &common.InMemoryEmail{}
	record, _ := store.Insert(context.Background(), Notification{Recipient: "x@example.com"})
	_ = store.MarkSent(context.Background(), record.ID, 1)

	handler := DeliveryHandler(store, mail, nil, zerolog.Nop())
	if err := handler(context.Background(), queue.Task{Payload: []byte(record.ID.String())}); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(mail.Outbox) != 0 {
		t.Fatalf("already sent notification delivered again, outbox = %d", len(mail.Outbox))
	}
}

func TestDeliveryHandlerDropsMalformedPayload(t *testing.T) {
	handler := DeliveryHandler(newMemStore(), &common.InMemoryEmail{}, nil, zerolog.Nop())
	if err := handler(context.Background(), queue.Task{Payload: []byte("not-a-uuid")}); err != nil {
		t.Fatalf("malformed payload should not retry: %v", err)
	}
}

func TestRenderSubjects(t *testing.T) {
	cases := []struct {
		topic   string
		payload map[string]any
		want    string
	}{
		{events.TopicEstimateCreated, map[string]any{"reference": "IMP-1"}, "New landed cost estimate IMP-1"},
		{events.TopicEstimateUpdated, nil, "Landed cost estimate updated"},
		{events.TopicShipmentBooked, map[string]any{"reference": "SEA-9"}, "Shipment booked SEA-9"},
		{events.TopicShipmentStatusChanged, map[string]any{"status": "IN_TRANSIT"}, "Shipment in transit"},
		{"custom.topic", nil, "Notification: custom.topic"},
	}
	for _, tc := range cases {
		if got := subjectFor(tc.topic, tc.payload); got != tc.want {
			t.Errorf("subjectFor(%s) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}
