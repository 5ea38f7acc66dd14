// Package server exposes the bot's HTTP surface: liveness and readiness probes, a JSON
// status document and Prometheus metrics. Every request gets a correlation id.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(status StatusProvider) http.Handler {
	h := NewHandlers(status)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.HandleHealthz)
	mux.HandleFunc("/readyz", h.HandleReadyz)
	mux.Handle("/status", rateLimitMiddleware(http.HandlerFunc(h.HandleStatus), newIPRateLimiter(loadRateLimiterConfig())))
	return withCorrelation(mux)
}

// Start runs the HTTP server on addr and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, status StatusProvider) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serve(ctx, ln, status)
}

func serve(ctx context.Context, ln net.Listener, status StatusProvider) error {
	srv := &http.Server{
		Handler:      NewMux(status),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()
	slog.Info("http server listening", slog.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
