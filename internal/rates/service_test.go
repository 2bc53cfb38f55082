package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/impexflow/backend-impex/internal/resilience"
)

type stubProvider struct {
	quote Quote
	err   error
	calls int
}

func (p *stubProvider) Fetch(_ context.Context) (Quote, error) {
	p.calls++
	if p.err != nil {
		return Quote{}, p.err
	}
	return p.quote, nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCurrentPrefersProviderAndCaches(t *testing.T) {
	cache, mr := newTestCache(t)
	provider := &stubProvider{quote: Quote{USDZAR: 18.5, EURZAR: 19.9, RetrievedAt: time.Now().UTC()}}
	svc, err := NewService(ServiceConfig{
		Provider: provider,
		Fallback: StaticProvider{USDZAR: 18.0, EURZAR: 19.5},
		Cache:    cache,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if quote.USDZAR != 18.5 || quote.EURZAR != 19.9 {
		t.Fatalf("quote = %+v", quote)
	}
	if !mr.Exists("impex:rates:current") {
		t.Fatal("quote should be cached")
	}

	// second lookup comes from cache, not the provider
	if _, err := svc.Current(context.Background()); err != nil {
		t.Fatalf("cached current: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}
}

func TestCurrentFallsBackWhenProviderFails(t *testing.T) {
	cache, _ := newTestCache(t)
	provider := &stubProvider{err: errors.New("upstream down")}
	svc, err := NewService(ServiceConfig{
		Provider: provider,
		Fallback: StaticProvider{USDZAR: 18.0, EURZAR: 19.5},
		Cache:    cache,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if quote.USDZAR != 18.0 || quote.EURZAR != 19.5 {
		t.Fatalf("expected fallback rates, got %+v", quote)
	}
}

func TestCurrentWithoutProviderUsesFallback(t *testing.T) {
	svc, err := NewService(ServiceConfig{
		Fallback: StaticProvider{USDZAR: 17.2, EURZAR: 18.8},
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	quote, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if quote.USDZAR != 17.2 {
		t.Fatalf("quote = %+v", quote)
	}
}

func TestCurrentSkipsProviderWhenBreakerOpen(t *testing.T) {
	breaker := resilience.NewBreaker("rates-test", 1, 0.5, time.Minute, zerolog.Nop())
	breaker.Report(false) // trip it

	provider := &stubProvider{quote: Quote{USDZAR: 18.5, EURZAR: 19.9}}
	svc, err := NewService(ServiceConfig{
		Provider: provider,
		Fallback: StaticProvider{USDZAR: 18.0, EURZAR: 19.5},
		Breaker:  breaker,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider calls = %d, want 0 while breaker is open", provider.calls)
	}
	if quote.USDZAR != 18.0 {
		t.Fatalf("expected fallback quote, got %+v", quote)
	}
}

func TestNewServiceRequiresFallback(t *testing.T) {
	if _, err := NewService(ServiceConfig{Logger: zerolog.Nop()}); err == nil {
		t.Fatal("expected error without fallback rates")
	}
}

func TestHTTPProviderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"usd_zar": 18.42, "eur_zar": 20.01}`))
	}))
	defer srv.Close()

	provider, err := NewHTTPProvider(srv.URL, time.Second)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	quote, err := provider.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if quote.USDZAR != 18.42 || quote.EURZAR != 20.01 {
		t.Fatalf("quote = %+v", quote)
	}
	if quote.RetrievedAt.IsZero() {
		t.Fatal("retrieved_at should be stamped")
	}
}

func TestHTTPProviderRejectsBadResponses(t *testing.T) {
	cases := []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"zero rates", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"usd_zar": 0, "eur_zar": 0}`))
		}},
		{"malformed body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.fn)
			defer srv.Close()
			provider, err := NewHTTPProvider(srv.URL, time.Second)
			if err != nil {
				t.Fatalf("new provider: %v", err)
			}
			if _, err := provider.Fetch(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestQuoteRates(t *testing.T) {
	q := Quote{USDZAR: 18.5, EURZAR: 19.9}
	r := q.Rates()
	if r.ROEOrigin != 18.5 || r.ROEEur != 19.9 {
		t.Fatalf("rates = %+v", r)
	}
}
