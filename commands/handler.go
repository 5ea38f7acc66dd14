// Package commands holds the chat command registry, the handler catalog it loads
// from, the permission evaluator, and the built-in command handlers.
package commands

import (
	"context"
	"errors"
	"strings"

	"github.com/onnwee/chatwarden/banlist"
	"github.com/onnwee/chatwarden/config"
)

// Prefix starts every command token.
const Prefix = "!"

var (
	// ErrUnknownCommand is returned when a name has no handler in the catalog.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotLoaded is returned by Reload when the command is not currently loaded.
	ErrNotLoaded = errors.New("command not loaded")
)

// Handler executes one chat command. message is the full chat text, token included.
// An empty reply means nothing is sent. Misuse is reported as a usage reply, not an
// error; errors are reserved for unexpected failures.
type Handler interface {
	Execute(ctx context.Context, env *Env, message string) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env *Env, message string) (string, error)

func (f HandlerFunc) Execute(ctx context.Context, env *Env, message string) (string, error) {
	return f(ctx, env, message)
}

// BanList is the slice of banlist.Store the moderation handlers need.
type BanList interface {
	Ban(name string) (banlist.Outcome, error)
	Unban(name string) (banlist.Outcome, error)
}

// Env is what a handler can see: configuration, the live registry and the ban list.
type Env struct {
	Config      *config.Config
	Permissions PermissionTable
	Moderators  ModeratorSet
	Registry    *Registry
	Bans        BanList
}

// NewEnv derives the permission table and moderator set from cfg.
func NewEnv(cfg *config.Config, reg *Registry, bans BanList) *Env {
	return &Env{
		Config:      cfg,
		Permissions: PermissionTable(cfg.Permissions()),
		Moderators:  NewModeratorSet(cfg.Moderators),
		Registry:    reg,
		Bans:        bans,
	}
}

// Token returns the first whitespace-delimited word of message, or "".
func Token(message string) string {
	fields := strings.Fields(message)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// argument returns the first argument after the token, or "".
func argument(message string) string {
	fields := strings.Fields(message)
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}

// normalize strips the prefix and lowercases a command name.
func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), Prefix))
}

// TokenFor returns the canonical token for a command name.
func TokenFor(name string) string {
	return Prefix + normalize(name)
}
