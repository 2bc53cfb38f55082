package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/impexflow/backend-impex/internal/costing"
)

// Quote is a set of exchange rates with the time they were observed.
type Quote struct {
	USDZAR      float64   `json:"usd_zar"`
	EURZAR      float64   `json:"eur_zar"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

// Rates converts a quote into the shape the costing engine consumes.
func (q Quote) Rates() costing.Rates {
	return costing.Rates{
		ROEOrigin: q.USDZAR,
		ROEEur:    q.EURZAR,
	}
}

// Provider fetches current exchange rates from some upstream source.
type Provider interface {
	Fetch(ctx context.Context) (Quote, error)
}

// StaticProvider serves fixed fallback rates from configuration.
type StaticProvider struct {
	USDZAR float64
	EURZAR float64
}

// Fetch returns the configured rates stamped with the current time.
func (p StaticProvider) Fetch(_ context.Context) (Quote, error) {
	if p.USDZAR <= 0 || p.EURZAR <= 0 {
		return Quote{}, errors.New("rates: static provider has no usable rates")
	}
	return Quote{USDZAR: p.USDZAR, EURZAR: p.EURZAR, RetrievedAt: time.Now().UTC()}, nil
}

// HTTPProvider pulls rates from an external JSON endpoint. The endpoint is
// expected to return {"usd_zar": <num>, "eur_zar": <num>}.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider wires an instrumented HTTP client against the given URL.
func NewHTTPProvider(url string, timeout time.Duration) (*HTTPProvider, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("rates: provider url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		url: url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Fetch requests the upstream endpoint and decodes the quote.
func (p *HTTPProvider) Fetch(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("rates: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("rates: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("rates: upstream returned %d", resp.StatusCode)
	}
	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return Quote{}, fmt.Errorf("rates: decode response: %w", err)
	}
	if quote.USDZAR <= 0 || quote.EURZAR <= 0 {
		return Quote{}, errors.New("rates: upstream returned non-positive rates")
	}
	if quote.RetrievedAt.IsZero() {
		quote.RetrievedAt = time.Now().UTC()
	}
	return quote, nil
}
