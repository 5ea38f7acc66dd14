// Command chatwarden is a YouTube live chat moderation bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Authenticates with the stored YouTube OAuth token and resolves the live chat.
//   - Polls chat messages and answers commands, welcomes and bans via the dispatcher.
//   - Posts a rotating broadcast message on a fixed interval.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/chatwarden/banlist"
	"github.com/onnwee/chatwarden/chat"
	"github.com/onnwee/chatwarden/commands"
	"github.com/onnwee/chatwarden/config"
	"github.com/onnwee/chatwarden/crypto"
	"github.com/onnwee/chatwarden/server"
	"github.com/onnwee/chatwarden/telemetry"
	"github.com/onnwee/chatwarden/youtubeapi"
)

var version = "dev"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	telemetry.SetupLogging(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdown, err := telemetry.InitTracing("chatwarden", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("bot stopped with error", slog.Any("err", err))
		shutdown()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

func run(ctx context.Context, cfg *config.Config) error {
	bans := banlist.New(cfg.BanListPath)
	registry := commands.NewRegistry(commands.DefaultCatalog())
	loaded := registry.LoadAll(cfg.DisabledCommands)
	telemetry.SetLoadedCommands(loaded)
	env := commands.NewEnv(cfg, registry, bans)
	slog.Info("commands loaded", slog.Int("count", loaded), slog.Any("tokens", registry.Tokens()))

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
	client, err := youtubeapi.New(oc, store).Client(ctx)
	if err != nil {
		return err
	}
	live := youtubeapi.NewLiveChat(client, cfg.SendRatePerSecond)

	botName, err := live.ResolveOwnChannelName(ctx)
	if err != nil {
		slog.Warn("could not resolve bot channel name; self-message filter disabled", slog.Any("err", err))
	}
	dispatcher := chat.NewDispatcher(env, bans, botName)
	status := server.NewBotStatus(registry, dispatcher)

	startPprof()
	if cfg.HTTPAddr != "" {
		go func() {
			if err := server.Start(ctx, cfg.HTTPAddr, status); err != nil {
				slog.Error("http server exited with error", slog.Any("err", err))
			}
		}()
	}

	chatID, err := live.ResolveChatID(ctx, cfg.VideoID)
	if err != nil {
		return err
	}
	status.SetChat(chatID, botName)
	slog.Info("connected to live chat", slog.String("chat_id", chatID), slog.String("bot", botName))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() {
		(&chat.Broadcaster{
			Sender:     live,
			ChatID:     chatID,
			Messages:   cfg.BroadcastMessages,
			Interval:   cfg.BroadcastInterval(),
			RetryDelay: cfg.BroadcastRetryDelay,
		}).Run(runCtx)
	})

	poller := &chat.Poller{
		Platform:        live,
		Dispatcher:      dispatcher,
		ChatID:          chatID,
		DefaultInterval: cfg.PollInterval,
		MaxFailures:     cfg.MaxFetchFailures,
		RetryDelay:      cfg.FetchRetryDelay,
	}
	err = poller.Run(runCtx)
	cancel()
	wg.Wait()
	if errors.Is(err, chat.ErrChatEnded) {
		slog.Info("live chat ended", slog.Any("reason", err))
		return nil
	}
	return err
}

// startPprof enables profiling endpoints in debug mode (ENABLE_PPROF=1).
func startPprof() {
	if os.Getenv("ENABLE_PPROF") != "1" {
		return
	}
	addr := os.Getenv("PPROF_ADDR")
	if addr == "" {
		addr = "localhost:6060"
	}
	go func() {
		slog.Info("pprof profiling enabled", slog.String("addr", addr))
		srv := &http.Server{
			Addr:              addr,
			Handler:           nil, // default mux exposes /debug/pprof
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil {
			slog.Error("pprof server error", slog.Any("err", err))
		}
	}()
}
