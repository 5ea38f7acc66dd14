package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/onnwee/chatwarden/chat"
	"github.com/onnwee/chatwarden/commands"
)

// Status is the JSON document served at /status.
type Status struct {
	ChatID   string        `json:"chat_id"`
	BotName  string        `json:"bot_name"`
	Commands []string      `json:"commands"`
	Chat     chat.Snapshot `json:"chat"`
}

// StatusProvider supplies the current bot status. Ready reports whether the bot is
// attached to a live chat.
type StatusProvider interface {
	Status() Status
	Ready() bool
}

// BotStatus is the StatusProvider used by main. The chat id and bot name are set once
// startup has resolved them.
type BotStatus struct {
	mu      sync.RWMutex
	chatID  string
	botName string

	registry   *commands.Registry
	dispatcher *chat.Dispatcher
}

func NewBotStatus(reg *commands.Registry, d *chat.Dispatcher) *BotStatus {
	return &BotStatus{registry: reg, dispatcher: d}
}

func (b *BotStatus) SetChat(chatID, botName string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatID, b.botName = chatID, botName
}

func (b *BotStatus) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.chatID != ""
}

func (b *BotStatus) Status() Status {
	b.mu.RLock()
	st := Status{ChatID: b.chatID, BotName: b.botName, Commands: []string{}}
	b.mu.RUnlock()
	if b.registry != nil {
		st.Commands = b.registry.Tokens()
	}
	if b.dispatcher != nil {
		st.Chat = b.dispatcher.State().Snapshot()
	}
	return st
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	status StatusProvider
}

func NewHandlers(status StatusProvider) *Handlers {
	return &Handlers{status: status}
}

// HandleHealthz is the liveness probe; the process answering is enough.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports 503 until the bot is attached to a live chat.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if !h.status.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":       "not_ready",
			"failed_check": "live_chat",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.status.Status())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
