package commands

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a fresh handler instance.
type Factory func() Handler

// Source resolves command names to handlers. Evict drops whatever the source cached
// for name so the next Resolve starts from scratch.
type Source interface {
	Resolve(name string) (Handler, error)
	Evict(name string)
	Names() []string
}

// Catalog is the compiled table of known handlers. Resolve always builds a new handler
// from the factory and keeps it as the cached artifact for name.
type Catalog struct {
	mu        sync.Mutex
	factories map[string]Factory
	cache     map[string]Handler
}

func NewCatalog() *Catalog {
	return &Catalog{
		factories: make(map[string]Factory),
		cache:     make(map[string]Handler),
	}
}

// Add registers a factory under name. A later Add for the same name wins.
func (c *Catalog) Add(name string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[normalize(name)] = f
}

func (c *Catalog) Resolve(name string) (Handler, error) {
	name = normalize(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", name, ErrUnknownCommand)
	}
	h := f()
	if h == nil {
		return nil, fmt.Errorf("resolve %q: factory returned no handler", name)
	}
	c.cache[name] = h
	return h, nil
}

func (c *Catalog) Evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, normalize(name))
}

// Cached reports whether a resolved artifact is held for name.
func (c *Catalog) Cached(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.cache[normalize(name)]
	return ok
}

// Names lists catalog entries sorted.
func (c *Catalog) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultCatalog returns the catalog of built-in commands.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Add("link", func() Handler { return fixedText("!link") })
	c.Add("discord", func() Handler { return fixedText("!discord") })
	c.Add("ban", func() Handler { return HandlerFunc(banCommand) })
	c.Add("unban", func() Handler { return HandlerFunc(unbanCommand) })
	c.Add("load", func() Handler { return HandlerFunc(loadCommand) })
	c.Add("unload", func() Handler { return HandlerFunc(unloadCommand) })
	c.Add("reload", func() Handler { return HandlerFunc(reloadCommand) })
	return c
}
