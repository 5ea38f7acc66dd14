package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/chatwarden/commands"
	"github.com/onnwee/chatwarden/telemetry"
)

// Fixed replies produced by the dispatcher itself.
const (
	PermissionDenied = "You do not have permission to use this command."
	CommandFailed    = "Sorry, something went wrong running that command."
)

// Dispatcher applies the message policy to chat items one at a time.
type Dispatcher struct {
	env     *commands.Env
	bans    BanChecker
	state   *State
	botName string

	// Now is the clock used for cooldowns. Defaults to time.Now.
	Now func() time.Time
}

// NewDispatcher returns a dispatcher with fresh State started now. botName is the bot's
// own display name; empty disables the self-message filter.
func NewDispatcher(env *commands.Env, bans BanChecker, botName string) *Dispatcher {
	return &Dispatcher{
		env:     env,
		bans:    bans,
		state:   NewState(time.Now()),
		botName: botName,
		Now:     time.Now,
	}
}

// WithState replaces the dispatcher's state. Used by tests and by callers that need a
// specific process start time.
func (d *Dispatcher) WithState(s *State) *Dispatcher {
	d.state = s
	return d
}

func (d *Dispatcher) State() *State { return d.state }

// HandlePage runs every item of one fetched page through Handle in order and returns
// the replies to send. The staleness filter only applies to the first page.
func (d *Dispatcher) HandlePage(ctx context.Context, items []ChatItem) []string {
	var replies []string
	for _, it := range items {
		if reply, ok := d.Handle(ctx, it); ok {
			replies = append(replies, reply)
		}
	}
	d.state.markFirstPageDone()
	return replies
}

// Handle applies the policy to one item and returns the reply, if any.
func (d *Dispatcher) Handle(ctx context.Context, item ChatItem) (string, bool) {
	ctx, _ = telemetry.NewCorrelation(ctx)
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "dispatcher"), slog.String("author", item.AuthorName))
	telemetry.Inc(telemetry.MessagesProcessed)
	text := strings.TrimSpace(item.Text)

	if d.state.isStale(item) {
		log.Debug("skipping message from before startup", slog.Time("published_at", item.PublishedAt))
		telemetry.Dropped(telemetry.DropStale)
		return "", false
	}
	if d.botName != "" && item.AuthorName == d.botName {
		telemetry.Dropped(telemetry.DropSelf)
		return "", false
	}
	if d.bans != nil && d.bans.IsBanned(item.AuthorName) {
		log.Info("ignoring message from banned user")
		telemetry.Dropped(telemetry.DropBanned)
		return "", false
	}

	now := d.Now().UTC()
	cfg := d.env.Config
	if !d.state.passUserCooldown(item.AuthorID, now, cfg.UserCooldown()) {
		log.Debug("user on cooldown")
		telemetry.Dropped(telemetry.DropUserCooldown)
		return "", false
	}

	if isNew, n := d.state.markSeen(item.AuthorID); isNew {
		telemetry.SetSeenUsers(n)
		telemetry.Inc(telemetry.WelcomesSent)
		log.Info("welcoming new user")
		return cfg.FormatWelcome(item.AuthorName), true
	}

	token := commands.Token(text)
	h, ok := d.env.Registry.Lookup(token)
	if !ok {
		if strings.HasPrefix(token, commands.Prefix) {
			telemetry.Dropped(telemetry.DropUnknown)
		}
		return "", false
	}
	log = log.With(slog.String("command", token))

	if !d.state.globalCooldownElapsed(now, cfg.GlobalCommandCooldown()) {
		log.Debug("global command cooldown active; dropping")
		telemetry.Dropped(telemetry.DropGlobalCooldown)
		return "", false
	}

	if !commands.HasPermission(item.AuthorID, token, d.env.Permissions, d.env.Moderators) {
		log.Info("permission denied")
		telemetry.Inc(telemetry.CommandsDenied)
		return PermissionDenied, true
	}

	reply, err := d.invoke(ctx, h, token, text)
	d.state.recordGlobalCommand(now)
	telemetry.Dispatched(token)
	if err != nil {
		log.Error("command failed", slog.Any("err", err))
		telemetry.Inc(telemetry.HandlerFailures)
		return CommandFailed, true
	}
	if reply == "" {
		return "", false
	}
	return reply, true
}

// invoke runs h, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, h commands.Handler, token, text string) (reply string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "chat.command", attribute.String("command", token))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
		telemetry.EndSpan(span, err)
	}()
	telemetry.TimeFunc(telemetry.DispatchDuration, func() {
		reply, err = h.Execute(ctx, d.env, text)
	})
	return reply, err
}
