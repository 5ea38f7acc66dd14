// Command authorize runs the one-time YouTube OAuth consent flow. It prints the consent
// URL, waits for Google to redirect back to YT_REDIRECT_URI on a loopback listener and
// stores the resulting token in YT_TOKEN_FILE (sealed when ENCRYPTION_KEY is set).
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/chatwarden/config"
	"github.com/onnwee/chatwarden/crypto"
	"github.com/onnwee/chatwarden/telemetry"
	"github.com/onnwee/chatwarden/youtubeapi"
)

type exchanger interface {
	Exchange(ctx context.Context, code string) error
}

type serviceExchanger struct{ svc *youtubeapi.Service }

func (s serviceExchanger) Exchange(ctx context.Context, code string) error {
	_, err := s.svc.Exchange(ctx, code)
	return err
}

// callback handles the OAuth redirect. done receives exactly one result.
type callback struct {
	state string
	ex    exchanger
	done  chan error
}

func newCallback(state string, ex exchanger) *callback {
	return &callback{state: state, ex: ex, done: make(chan error, 1)}
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
		c.finish(fmt.Errorf("authorization denied: %s", e))
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		http.Error(w, "missing code/state", http.StatusBadRequest)
		return
	}
	if state != c.state {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	if err := c.ex.Exchange(r.Context(), code); err != nil {
		slog.Error("token exchange failed", slog.Any("err", err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		c.finish(err)
		return
	}
	_, _ = fmt.Fprintln(w, "Authorization complete. You can close this window.")
	c.finish(nil)
}

func (c *callback) finish(err error) {
	select {
	case c.done <- err:
	default:
	}
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "how long to wait for the OAuth redirect")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}
	telemetry.SetupLogging(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, *timeout); err != nil {
		slog.Error("authorization failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("youtube token stored", slog.String("file", cfg.YTTokenFile))
}

func run(ctx context.Context, cfg *config.Config, timeout time.Duration) error {
	oc, err := youtubeapi.OAuthConfig(cfg)
	if err != nil {
		return err
	}
	store := &youtubeapi.FileTokenStore{Path: cfg.YTTokenFile}
	if cfg.EncryptionKey != "" {
		sealer, err := crypto.NewSealer(cfg.EncryptionKey)
		if err != nil {
			return err
		}
		store.Sealer = sealer
	}
	svc := youtubeapi.New(oc, store)

	redirect, err := url.Parse(oc.RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("invalid redirect uri %q", oc.RedirectURL)
	}
	state, err := randomState()
	if err != nil {
		return fmt.Errorf("generate state: %w", err)
	}
	cb := newCallback(state, serviceExchanger{svc: svc})

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.Handle(path, cb)
	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("callback server error", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Println("Open this URL in a browser and grant access:")
	fmt.Println(svc.AuthCodeURL(state))

	select {
	case err := <-cb.done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("no redirect received within %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
