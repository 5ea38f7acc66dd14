package commands

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry maps command tokens to their active handler. The dispatch loop is the only
// writer; the lock exists so status readers can take a consistent snapshot.
type Registry struct {
	mu       sync.RWMutex
	source   Source
	handlers map[string]Handler
}

func NewRegistry(src Source) *Registry {
	return &Registry{
		source:   src,
		handlers: make(map[string]Handler),
	}
}

// Load resolves name from the source and installs it under its token, replacing any
// handler already there. On failure the existing entry is left untouched.
func (r *Registry) Load(name string) error {
	token := TokenFor(name)
	slog.Info("loading command", slog.String("command", token))
	h, err := r.source.Resolve(normalize(name))
	if err != nil {
		slog.Error("failed to load command", slog.String("command", token), slog.Any("err", err))
		return fmt.Errorf("load %s: %w", token, err)
	}
	r.mu.Lock()
	r.handlers[token] = h
	r.mu.Unlock()
	slog.Info("loaded command", slog.String("command", token))
	return nil
}

// Unload removes the handler for name and evicts the source's cached artifact.
// It reports whether a handler was present.
func (r *Registry) Unload(name string) bool {
	token := TokenFor(name)
	r.mu.Lock()
	_, ok := r.handlers[token]
	delete(r.handlers, token)
	r.mu.Unlock()
	r.source.Evict(normalize(name))
	if ok {
		slog.Info("unloaded command", slog.String("command", token))
	}
	return ok
}

// Reload is Unload followed by Load. It returns ErrNotLoaded if the command was not
// loaded. If the Load step fails the previous handler is already gone.
func (r *Registry) Reload(name string) error {
	if !r.Unload(name) {
		return fmt.Errorf("reload %s: %w", TokenFor(name), ErrNotLoaded)
	}
	return r.Load(name)
}

// Lookup returns the handler for an exact token match.
func (r *Registry) Lookup(token string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[token]
	return h, ok
}

// LoadAll loads every source entry not listed in disabled and returns how many loaded.
func (r *Registry) LoadAll(disabled []string) int {
	skip := make(map[string]bool, len(disabled))
	for _, d := range disabled {
		skip[normalize(d)] = true
	}
	n := 0
	for _, name := range r.source.Names() {
		if skip[name] {
			slog.Info("command disabled by config", slog.String("command", TokenFor(name)))
			continue
		}
		if err := r.Load(name); err == nil {
			n++
		}
	}
	return n
}

// Tokens lists loaded tokens sorted.
func (r *Registry) Tokens() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
