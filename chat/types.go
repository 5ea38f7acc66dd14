package chat

import (
	"context"
	"errors"
	"time"
)

// ErrChatEnded is returned by FetchChatPage once the live chat is over. The poll loop
// stops on it without retrying.
var ErrChatEnded = errors.New("live chat ended")

// ChatItem is one inbound chat message.
type ChatItem struct {
	AuthorID    string
	AuthorName  string
	Text        string
	PublishedAt time.Time // UTC
}

// Page is one batch of chat items. PollInterval is the server's suggested wait before
// the next fetch; zero means no suggestion.
type Page struct {
	Items         []ChatItem
	NextPageToken string
	PollInterval  time.Duration
}

// Sender posts a text message to a live chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Platform is the live-chat API the poller consumes.
type Platform interface {
	Sender
	FetchChatPage(ctx context.Context, chatID, pageToken string) (Page, error)
}

// BanChecker reports whether a display name is banned.
type BanChecker interface {
	IsBanned(name string) bool
}

// sleep waits d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
