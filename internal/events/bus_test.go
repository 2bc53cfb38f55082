package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memStore struct {
	inserted []Event
	err      error
}

func (m *memStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	event := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	m.inserted = append(m.inserted, event)
	return event, nil
}

type recordingNotifier struct {
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

type recordingScheduler struct {
	events []Event
	err    error
}

func (r *recordingScheduler) Schedule(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestEmitPersistsAndFansOut(t *testing.T) {
	store := &memStore{}
	sched := &recordingScheduler{}
	first := &recordingNotifier{}
	second := &recordingNotifier{}
	bus := &Bus{Store: store, Scheduler: sched, Notifiers: []Notifier{first, second}}

	id := uuid.New()
	event, err := bus.Emit(context.Background(), TopicShipmentStatusChanged, id, map[string]string{"status": "AT_PORT"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if event.Topic != TopicShipmentStatusChanged {
		t.Fatalf("topic = %q", event.Topic)
	}
	if event.AggregateID != id {
		t.Fatalf("aggregate id = %s", event.AggregateID)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted = %d", len(store.inserted))
	}
	if len(sched.events) != 1 || len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("fan-out incomplete: sched=%d first=%d second=%d", len(sched.events), len(first.events), len(second.events))
	}
	var payload map[string]string
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload["status"] != "AT_PORT" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestEmitNotifierFailureDoesNotStopOthers(t *testing.T) {
	store := &memStore{}
	failing := &recordingNotifier{err: errors.New("smtp down")}
	healthy := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{failing, healthy}}

	_, err := bus.Emit(context.Background(), TopicEstimateCreated, uuid.New(), nil)
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(healthy.events) != 1 {
		t.Fatalf("healthy notifier events = %d", len(healthy.events))
	}
	if len(store.inserted) != 1 {
		t.Fatalf("event should be persisted despite notifier failure, inserted = %d", len(store.inserted))
	}
}

func TestEmitStoreFailure(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	_, err := bus.Emit(context.Background(), TopicEstimateCreated, uuid.New(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.events) != 0 {
		t.Fatalf("notifier should not run when persistence fails, events = %d", len(notifier.events))
	}
}

func TestEmitValidation(t *testing.T) {
	bus := &Bus{Store: &memStore{}}
	ctx := context.Background()

	if _, err := bus.Emit(ctx, "", uuid.New(), nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if _, err := bus.Emit(ctx, TopicEstimateCreated, uuid.Nil, nil); err == nil {
		t.Fatal("expected error for nil aggregate id")
	}
	if _, err := bus.Emit(ctx, TopicEstimateCreated, uuid.New(), json.RawMessage(`{"broken`)); err == nil {
		t.Fatal("expected error for invalid json payload")
	}
}

func TestEncodePayloadForms(t *testing.T) {
	cases := []struct {
		name    string
		payload any
		want    string
	}{
		{"nil", nil, "{}"},
		{"empty string", "   ", "{}"},
		{"raw json", json.RawMessage(`{"a":1}`), `{"a":1}`},
		{"bytes", []byte(`[1,2]`), `[1,2]`},
		{"struct", struct {
			N int `json:"n"`
		}{N: 7}, `{"n":7}`},
	}
	for _, tc := range cases {
		got, err := encodePayload(tc.payload)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if string(got) != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
