package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"roster/internal/ratelimit/metrics"
	"roster/internal/ratelimit/models"
	"roster/pkg/platform/httputil"
	"roster/pkg/requestcontext"
)

// BucketStore is the sliding window backend the middleware consults.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	store    BucketStore
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// New builds a limiter admitting limit requests per caller in any window.
// A non-positive limit disables limiting.
func New(store BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if limit <= 0 || window <= 0 {
		m.disabled = true
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimitCaller limits requests per authenticated caller. It must run after
// the auth middleware. Store failures let the request through.
func (m *Middleware) RateLimitCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		caller := requestcontext.CallerID(ctx)
		if caller.IsZero() {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.Allow(ctx, "caller:"+caller.String(), m.limit, m.window)
		if err != nil {
			m.metrics.IncrementErrors()
			m.logger.ErrorContext(ctx, "failed to check caller rate limit",
				"error", err,
				"caller", caller,
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			m.metrics.IncrementRejected()
			m.logger.WarnContext(ctx, "caller rate limited",
				"caller", caller,
				"retry_after", result.RetryAfter,
			)
			writeRateLimitExceeded(w, result)
			return
		}

		m.metrics.IncrementAllowed()
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many registry requests. Please try again later.",
		Limit:      result.Limit,
		RetryAfter: result.RetryAfter,
	})
}
