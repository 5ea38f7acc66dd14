// Package testutil holds httptest fakes shared by package tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Paths served by the YouTube Data API relative to the service base path.
const (
	LiveChatMessagesPath = "/youtube/v3/liveChat/messages"
	VideosPath           = "/youtube/v3/videos"
	ChannelsPath         = "/youtube/v3/channels"
	TokenPath            = "/token"
)

// MockYouTubeServer is a test server answering YouTube Data API and OAuth token calls.
// Point a client at it with option.WithEndpoint(m.URL + "/").
type MockYouTubeServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu       sync.Mutex
	requests []*http.Request
	bodies   map[*http.Request][]byte
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	m := &MockYouTubeServer{
		Handlers: make(map[string]http.HandlerFunc),
		bodies:   make(map[*http.Request][]byte),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck // test mock
		m.mu.Lock()
		m.requests = append(m.requests, r)
		m.bodies[r] = body
		handler, ok := m.Handlers[r.Method+" "+r.URL.Path]
		if !ok {
			handler, ok = m.Handlers[r.URL.Path]
		}
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers h for path. A "METHOD /path" key restricts it to one method.
func (m *MockYouTubeServer) Handle(key string, h http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[key] = h
}

// Requests returns the requests received for path, in order.
func (m *MockYouTubeServer) Requests(path string) []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*http.Request
	for _, r := range m.requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Body returns the captured request body of r.
func (m *MockYouTubeServer) Body(r *http.Request) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[r]
}

// MockJSON answers key with status and body encoded as JSON.
func (m *MockYouTubeServer) MockJSON(key string, status int, body any) {
	m.Handle(key, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body) //nolint:errcheck // test mock response
	})
}

// MockError answers key with a Google API error carrying reason.
func (m *MockYouTubeServer) MockError(key string, status int, reason string) {
	m.MockJSON(key, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "message": reason}},
		},
	})
}

// MockChatMessages answers live chat list calls with one page.
func (m *MockYouTubeServer) MockChatMessages(items []map[string]any, nextPageToken string, pollMillis int) {
	m.MockJSON("GET "+LiveChatMessagesPath, http.StatusOK, map[string]any{
		"items":                 items,
		"nextPageToken":         nextPageToken,
		"pollingIntervalMillis": pollMillis,
	})
}

// ChatMessage builds one liveChatMessage resource.
func ChatMessage(channelID, displayName, text, publishedAt string) map[string]any {
	return map[string]any{
		"snippet": map[string]any{
			"displayMessage": text,
			"publishedAt":    publishedAt,
			"type":           "textMessageEvent",
		},
		"authorDetails": map[string]any{
			"channelId":   channelID,
			"displayName": displayName,
		},
	}
}

// MockInsertOK answers live chat insert calls with an empty resource.
func (m *MockYouTubeServer) MockInsertOK() {
	m.MockJSON("POST "+LiveChatMessagesPath, http.StatusOK, map[string]any{"id": "msg-1"})
}

// MockVideo answers video list calls. An empty chatID leaves out liveStreamingDetails.
func (m *MockYouTubeServer) MockVideo(videoID, chatID string) {
	item := map[string]any{"id": videoID}
	if chatID != "" {
		item["liveStreamingDetails"] = map[string]any{"activeLiveChatId": chatID}
	}
	m.MockJSON(VideosPath, http.StatusOK, map[string]any{"items": []any{item}})
}

// MockChannel answers channel list calls. An empty title returns no items.
func (m *MockYouTubeServer) MockChannel(title string) {
	items := []any{}
	if title != "" {
		items = append(items, map[string]any{"snippet": map[string]any{"title": title}})
	}
	m.MockJSON(ChannelsPath, http.StatusOK, map[string]any{"items": items})
}

// MockOAuthTokenResponse answers the OAuth token endpoint.
func (m *MockYouTubeServer) MockOAuthTokenResponse(accessToken, refreshToken string, expiresIn int) {
	m.MockJSON(TokenPath, http.StatusOK, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"expires_in":    expiresIn,
		"token_type":    "Bearer",
	})
}
