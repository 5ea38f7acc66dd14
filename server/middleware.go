package server

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/onnwee/chatwarden/telemetry"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// withCorrelation reuses an inbound correlation id or generates one, stores it in the
// request context and wraps the request in a span.
func withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get(CorrelationHeader)
		if corr == "" {
			corr = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, corr)
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		ctx, span := telemetry.StartSpan(ctx, r.Method+" "+r.URL.Path,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", r.URL.Path),
		)
		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.statusCode))
		var err error
		if rec.statusCode >= 500 {
			err = errHTTPStatus(rec.statusCode)
		}
		telemetry.EndSpan(span, err)
	})
}

type errHTTPStatus int

func (e errHTTPStatus) Error() string { return "HTTP " + strconv.Itoa(int(e)) }

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// rateLimiterConfig holds rate limiting configuration
type rateLimiterConfig struct {
	enabled bool
	perMin  int
}

// loadRateLimiterConfig reads RATE_LIMIT_ENABLED (default on) and
// RATE_LIMIT_REQUESTS_PER_MINUTE (default 60).
func loadRateLimiterConfig() rateLimiterConfig {
	cfg := rateLimiterConfig{enabled: os.Getenv("RATE_LIMIT_ENABLED") != "0", perMin: 60}
	if n, err := strconv.Atoi(os.Getenv("RATE_LIMIT_REQUESTS_PER_MINUTE")); err == nil && n > 0 {
		cfg.perMin = n
	}
	return cfg
}

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for ten minutes are
// dropped on the next request.
type ipRateLimiter struct {
	mu       sync.Mutex
	cfg      rateLimiterConfig
	visitors map[string]*visitor
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const visitorIdle = 10 * time.Minute

func newIPRateLimiter(cfg rateLimiterConfig) *ipRateLimiter {
	return &ipRateLimiter{cfg: cfg, visitors: make(map[string]*visitor), now: time.Now}
}

func (rl *ipRateLimiter) allow(ip string) bool {
	if !rl.cfg.enabled {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, k)
		}
	}
	v, ok := rl.visitors[ip]
	if !ok {
		every := time.Minute / time.Duration(rl.cfg.perMin)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.cfg.perMin)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// rateLimitMiddleware rejects clients over their budget with 429.
func rateLimitMiddleware(next http.Handler, limiter *ipRateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.allow(ip) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too Many Requests - rate limit exceeded", http.StatusTooManyRequests)
			slog.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP takes the first X-Forwarded-For entry if present, else RemoteAddr, without port.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
