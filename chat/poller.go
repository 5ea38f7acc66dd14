package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/chatwarden/telemetry"
)

// Poller fetches chat pages sequentially and dispatches their items in arrival order.
type Poller struct {
	Platform   Platform
	Dispatcher *Dispatcher
	ChatID     string

	// DefaultInterval is used when the server suggests no polling interval.
	DefaultInterval time.Duration
	// MaxFailures consecutive fetch errors end the loop. Zero or less means 1.
	MaxFailures int
	RetryDelay  time.Duration
}

// Run polls until ctx is cancelled, the chat ends or fetching keeps failing. It returns
// nil on cancellation and an error wrapping ErrChatEnded when the chat is over.
func (p *Poller) Run(ctx context.Context) error {
	log := slog.With(slog.String("component", "poller"), slog.String("chat_id", p.ChatID))
	maxFailures := p.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}
	log.Info("polling live chat", slog.Duration("default_interval", p.DefaultInterval))

	var pageToken string
	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		page, err := p.Platform.FetchChatPage(ctx, p.ChatID, pageToken)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrChatEnded) {
				log.Warn("live chat has ended; stopping poller")
				return fmt.Errorf("poll %s: %w", p.ChatID, err)
			}
			failures++
			telemetry.Inc(telemetry.FetchFailures)
			log.Warn("fetch chat page failed", slog.Any("err", err), slog.Int("attempt", failures), slog.Int("max", maxFailures))
			if failures >= maxFailures {
				return fmt.Errorf("poll %s: giving up after %d consecutive failures: %w", p.ChatID, failures, err)
			}
			if !sleep(ctx, p.RetryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		for _, reply := range p.Dispatcher.HandlePage(ctx, page.Items) {
			p.send(ctx, log, reply)
		}

		pageToken = page.NextPageToken
		wait := page.PollInterval
		if wait <= 0 {
			wait = p.DefaultInterval
		}
		if !sleep(ctx, wait) {
			return nil
		}
	}
}

func (p *Poller) send(ctx context.Context, log *slog.Logger, text string) {
	if err := p.Platform.SendMessage(ctx, p.ChatID, text); err != nil {
		log.Error("failed to send reply", slog.Any("err", err))
		telemetry.Inc(telemetry.SendFailures)
		return
	}
	telemetry.Inc(telemetry.RepliesSent)
}
