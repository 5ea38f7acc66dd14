package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/chatwarden/chat"
	"github.com/onnwee/chatwarden/telemetry"
)

// ErrNotFound is returned when a video has no active live chat or the authenticated
// channel cannot be determined.
var ErrNotFound = errors.New("not found")

// chatEndedReasons are API error reasons meaning the chat will never return messages again.
var chatEndedReasons = map[string]bool{
	"liveChatEnded":    true,
	"liveChatNotFound": true,
	"liveChatDisabled": true,
}

// LiveChat implements chat.Platform on the YouTube Data API. SendMessage is safe for
// concurrent use; sends are serialised and paced.
type LiveChat struct {
	svc     *yt.Service
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewLiveChat paces outbound messages at perSecond with a burst of one.
func NewLiveChat(svc *yt.Service, perSecond float64) *LiveChat {
	return &LiveChat{svc: svc, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

var _ chat.Platform = (*LiveChat)(nil)

func (l *LiveChat) FetchChatPage(ctx context.Context, chatID, pageToken string) (chat.Page, error) {
	call := l.svc.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"}).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		if isChatEnded(err) {
			return chat.Page{}, fmt.Errorf("list live chat messages: %w: %w", chat.ErrChatEnded, err)
		}
		return chat.Page{}, fmt.Errorf("list live chat messages: %w", err)
	}
	if resp.OfflineAt != "" {
		return chat.Page{}, fmt.Errorf("live chat offline at %s: %w", resp.OfflineAt, chat.ErrChatEnded)
	}
	page := chat.Page{
		NextPageToken: resp.NextPageToken,
		PollInterval:  time.Duration(resp.PollingIntervalMillis) * time.Millisecond,
		Items:         make([]chat.ChatItem, 0, len(resp.Items)),
	}
	for _, m := range resp.Items {
		if item, ok := toChatItem(m); ok {
			page.Items = append(page.Items, item)
		}
	}
	return page, nil
}

func toChatItem(m *yt.LiveChatMessage) (chat.ChatItem, bool) {
	if m == nil || m.Snippet == nil || m.AuthorDetails == nil {
		return chat.ChatItem{}, false
	}
	text := m.Snippet.DisplayMessage
	if text == "" && m.Snippet.TextMessageDetails != nil {
		text = m.Snippet.TextMessageDetails.MessageText
	}
	item := chat.ChatItem{
		AuthorID:   m.AuthorDetails.ChannelId,
		AuthorName: m.AuthorDetails.DisplayName,
		Text:       strings.TrimSpace(text),
	}
	if ts, err := time.Parse(time.RFC3339Nano, m.Snippet.PublishedAt); err == nil {
		item.PublishedAt = ts.UTC()
	} else if m.Snippet.PublishedAt != "" {
		slog.Debug("unparseable chat publish time", slog.String("published_at", m.Snippet.PublishedAt))
	}
	return item, true
}

func (l *LiveChat) SendMessage(ctx context.Context, chatID, text string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "youtube.send", attribute.Int("length", len(text)))
	defer func() { telemetry.EndSpan(span, err) }()

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit wait: %w", err)
	}
	msg := &yt.LiveChatMessage{
		Snippet: &yt.LiveChatMessageSnippet{
			LiveChatId: chatID,
			Type:       "textMessageEvent",
			TextMessageDetails: &yt.LiveChatTextMessageDetails{
				MessageText: text,
			},
		},
	}
	if _, err := l.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("insert live chat message: %w", err)
	}
	return nil
}

// ResolveChatID returns the active live chat id of videoID.
func (l *LiveChat) ResolveChatID(ctx context.Context, videoID string) (string, error) {
	resp, err := l.svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list video %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	d := resp.Items[0].LiveStreamingDetails
	if d == nil || d.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s has no active live chat: %w", videoID, ErrNotFound)
	}
	return d.ActiveLiveChatId, nil
}

// ResolveOwnChannelName returns the authenticated channel's title.
func (l *LiveChat) ResolveOwnChannelName(ctx context.Context) (string, error) {
	resp, err := l.svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list own channel: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil || resp.Items[0].Snippet.Title == "" {
		return "", fmt.Errorf("own channel: %w", ErrNotFound)
	}
	return resp.Items[0].Snippet.Title, nil
}

func isChatEnded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, e := range gerr.Errors {
		if chatEndedReasons[e.Reason] {
			return true
		}
	}
	return false
}
