package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Task is a unit of asynchronous work.
type Task struct {
	Kind        string
	Payload     []byte
	DedupKey    string
	MaxAttempts int
	Delay       time.Duration
}

type message struct {
	Kind        string `json:"kind"`
	DedupKey    string `json:"dedup_key,omitempty"`
	Payload     []byte `json:"payload"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
	AvailableAt int64  `json:"available_at"`
}

// Enqueuer publishes tasks to Redis sorted-set queues. Tasks carrying a dedup
// key are enqueued at most once per deduplication window.
type Enqueuer struct {
	Client   *redis.Client
	Prefix   string
	DedupTTL time.Duration
}

// Enqueue inserts the task, ordered by its availability time.
func (e Enqueuer) Enqueue(ctx context.Context, t Task) error {
	if e.Client == nil {
		return errors.New("queue: redis client not configured")
	}
	kind := sanitizeKind(t.Kind)
	if kind == "" {
		return errors.New("queue: task kind is required")
	}
	msg := message{
		Kind:        kind,
		DedupKey:    t.DedupKey,
		Payload:     t.Payload,
		MaxAttempts: t.MaxAttempts,
		AvailableAt: time.Now().Add(t.Delay).UnixNano(),
	}
	if msg.MaxAttempts <= 0 {
		msg.MaxAttempts = 6
	}

	if msg.DedupKey != "" {
		ttl := e.DedupTTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ok, err := e.Client.SetNX(ctx, dedupKey(e.Prefix, kind, msg.DedupKey), "1", ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return e.Client.ZAdd(ctx, readyKey(e.Prefix, kind), redis.Z{
		Score:  float64(msg.AvailableAt),
		Member: raw,
	}).Err()
}

// Handler processes a dequeued task. A non-nil error triggers a retry with
// exponential backoff until the attempt budget is spent; the task then moves
// to the dead-letter list.
type Handler func(ctx context.Context, t Task) error

// DeadLetterSink receives tasks that exhausted their attempts.
type DeadLetterSink interface {
	SaveDead(ctx context.Context, kind, dedupKey string, payload []byte, attempts int, lastError string) error
}

// Worker consumes tasks of one kind.
type Worker struct {
	Client            *redis.Client
	Prefix            string
	Kind              string
	Concurrency       int
	VisibilityTimeout time.Duration
	RetryBase         time.Duration
	RetryJitter       float64
	Handler           Handler
	DLQ               DeadLetterSink
	OnDeadLetter      func(kind string)
}

// Run consumes tasks until the context is cancelled. In-flight tasks are
// parked in a processing set scored by their visibility deadline so a crashed
// worker's tasks get redelivered.
func (w Worker) Run(ctx context.Context) error {
	if w.Client == nil {
		return errors.New("queue: worker redis client not configured")
	}
	if w.Handler == nil {
		return errors.New("queue: worker handler not configured")
	}
	kind := sanitizeKind(w.Kind)
	if kind == "" {
		return errors.New("queue: worker kind is required")
	}
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	visibility := w.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	retryBase := w.RetryBase
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}

	ready := readyKey(w.Prefix, kind)
	processing := processingKey(w.Prefix, kind)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	reaper := time.NewTicker(time.Second)
	defer reaper.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-reaper.C:
			if err := w.reapExpired(ctx, processing, ready); err != nil {
				return err
			}
		default:
		}

		popped, err := w.Client.ZPopMin(ctx, ready, 1).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if err == redis.Nil {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}
		if len(popped) == 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		raw, ok := popped[0].Member.(string)
		if !ok {
			continue
		}
		var msg message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}

		now := time.Now().UnixNano()
		if msg.AvailableAt > now {
			// not due yet, push back and nap
			w.Client.ZAdd(ctx, ready, redis.Z{Score: float64(msg.AvailableAt), Member: raw})
			nap := time.Duration(msg.AvailableAt - now)
			if nap > time.Second {
				nap = time.Second
			}
			time.Sleep(nap)
			continue
		}

		msg.Attempt++
		attempted, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		deadline := time.Now().Add(visibility).UnixNano()
		if err := w.Client.ZAdd(ctx, processing, redis.Z{Score: float64(deadline), Member: attempted}).Err(); err != nil {
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(inFlight string, m message) {
			defer func() { <-sem }()
			defer wg.Done()
			taskCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			err := w.Handler(taskCtx, Task{Kind: kind, Payload: m.Payload, DedupKey: m.DedupKey})
			if err != nil {
				w.retryOrBury(taskCtx, ready, processing, inFlight, m, retryBase, err)
				return
			}
			w.ack(taskCtx, processing, inFlight, m)
		}(string(attempted), msg)
	}
}

func (w Worker) retryOrBury(ctx context.Context, ready, processing, inFlight string, msg message, base time.Duration, cause error) {
	_ = w.Client.ZRem(ctx, processing, inFlight)

	if msg.MaxAttempts > 0 && msg.Attempt >= msg.MaxAttempts {
		if w.DLQ != nil {
			_ = w.DLQ.SaveDead(ctx, msg.Kind, msg.DedupKey, msg.Payload, msg.Attempt, cause.Error())
		}
		if w.OnDeadLetter != nil {
			w.OnDeadLetter(msg.Kind)
		}
		if msg.DedupKey != "" {
			_ = w.Client.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.DedupKey)).Err()
		}
		return
	}

	msg.AvailableAt = time.Now().Add(backoffDelay(base, msg.Attempt, w.RetryJitter)).UnixNano()
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = w.Client.ZAdd(ctx, ready, redis.Z{Score: float64(msg.AvailableAt), Member: raw}).Err()
}

func (w Worker) ack(ctx context.Context, processing, inFlight string, msg message) {
	_ = w.Client.ZRem(ctx, processing, inFlight)
	if msg.DedupKey != "" {
		_ = w.Client.Del(ctx, dedupKey(w.Prefix, msg.Kind, msg.DedupKey)).Err()
	}
}

func (w Worker) reapExpired(ctx context.Context, processing, ready string) error {
	now := float64(time.Now().UnixNano())
	expired, err := w.Client.ZRangeByScore(ctx, processing, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, raw := range expired {
		var msg message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		_ = w.Client.ZRem(ctx, processing, raw).Err()
		msg.AvailableAt = time.Now().UnixNano()
		requeued, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		_ = w.Client.ZAdd(ctx, ready, redis.Z{Score: float64(msg.AvailableAt), Member: requeued}).Err()
	}
	return nil
}

// backoffDelay grows exponentially with the attempt count, with optional
// proportional jitter.
func backoffDelay(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if jitter > 0 {
		delay += delay * jitter * rand.Float64()
	}
	if delay > float64(10*time.Minute) {
		delay = float64(10 * time.Minute)
	}
	return time.Duration(delay)
}

func sanitizeKind(kind string) string {
	for i := 0; i < len(kind); i++ {
		c := kind[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == ':':
		default:
			return ""
		}
	}
	return kind
}

func readyKey(prefix, kind string) string {
	if prefix == "" {
		return "queue:" + kind
	}
	return prefix + ":queue:" + kind
}

func processingKey(prefix, kind string) string {
	if prefix == "" {
		return "queue:" + kind + ":processing"
	}
	return prefix + ":queue:" + kind + ":processing"
}

func dedupKey(prefix, kind, key string) string {
	if prefix == "" {
		return "queue:dedup:" + kind + ":" + key
	}
	return prefix + ":dedup:" + kind + ":" + key
}
