package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/impexflow/backend-impex/internal/common"
)

// Config binds a key extractor to a window and a hit ceiling.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Middleware checks the limiter before passing the request on. Limiter
// errors fail open so a Redis outage never blocks traffic.
type Middleware struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		dec, err := m.Limiter.Check(r.Context(), m.Config.Key(r), m.Config.Window, m.Config.Max)
		if err != nil {
			if m.OnError != nil {
				m.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := m.Config.Max
		if limit < 0 {
			limit = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

		if !dec.Allowed {
			retryAfter := int(time.Until(dec.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
