package chat

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/onnwee/chatwarden/telemetry"
)

// Broadcaster sends a random entry of Messages every Interval.
type Broadcaster struct {
	Sender     Sender
	ChatID     string
	Messages   []string
	Interval   time.Duration
	RetryDelay time.Duration

	// Pick returns an index in [0,n). Defaults to rand.IntN.
	Pick func(n int) int
}

// Run blocks until ctx is cancelled. It waits a full interval before the first send and
// never sends after cancellation. A failed send is logged and followed by RetryDelay.
func (b *Broadcaster) Run(ctx context.Context) {
	log := slog.With(slog.String("component", "broadcaster"))
	if len(b.Messages) == 0 {
		log.Info("no broadcast messages configured; broadcaster idle")
		return
	}
	pick := b.Pick
	if pick == nil {
		pick = rand.IntN
	}
	log.Info("broadcaster started", slog.Duration("interval", b.Interval), slog.Int("messages", len(b.Messages)))
	for {
		if !sleep(ctx, b.Interval) {
			return
		}
		msg := b.Messages[pick(len(b.Messages))]
		log.Info("sending scheduled message", slog.String("message", msg))
		if err := b.Sender.SendMessage(ctx, b.ChatID, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("scheduled message failed", slog.Any("err", err))
			telemetry.Inc(telemetry.SendFailures)
			if !sleep(ctx, b.RetryDelay) {
				return
			}
			continue
		}
		telemetry.Inc(telemetry.BroadcastsSent)
	}
}
