package commands

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/onnwee/chatwarden/banlist"
	"github.com/onnwee/chatwarden/config"
)

func newTestEnv(t *testing.T) (*Env, *banlist.Store) {
	t.Helper()
	cfg := &config.Config{
		LinkText:           "link text",
		DiscordText:        "discord text",
		CommandPermissions: map[string]string{"!ban": "moderator"},
	}
	bans := banlist.New(filepath.Join(t.TempDir(), "banned_users.json"))
	reg := NewRegistry(DefaultCatalog())
	reg.LoadAll(nil)
	return NewEnv(cfg, reg, bans), bans
}

func run(t *testing.T, env *Env, message string) string {
	t.Helper()
	h, ok := env.Registry.Lookup(Token(message))
	if !ok {
		t.Fatalf("no handler for %q", message)
	}
	reply, err := h.Execute(context.Background(), env, message)
	if err != nil {
		t.Fatalf("Execute(%q) error: %v", message, err)
	}
	return reply
}

func TestFixedTextCommands(t *testing.T) {
	env, _ := newTestEnv(t)
	if got := run(t, env, "!link"); got != "link text" {
		t.Errorf("!link = %q", got)
	}
	if got := run(t, env, "!discord please"); got != "discord text" {
		t.Errorf("!discord = %q", got)
	}
}

func TestFixedTextMissing(t *testing.T) {
	env, _ := newTestEnv(t)
	env.Config.LinkText = "  "
	h, _ := env.Registry.Lookup("!link")
	if _, err := h.Execute(context.Background(), env, "!link"); err == nil {
		t.Error("expected error when response text is blank")
	}
}

func TestBanUnbanReplies(t *testing.T) {
	env, bans := newTestEnv(t)
	steps := []struct {
		msg, want string
	}{
		{"!ban", "Usage: !ban <username>"},
		{"!ban alice", "User alice has been banned from the chat."},
		{"!ban alice", "User alice is already banned."},
		{"!unban bob", "User bob is not banned."},
		{"!unban alice", "User alice has been unbanned."},
		{"!unban", "Usage: !unban <username>"},
	}
	for _, s := range steps {
		if got := run(t, env, s.msg); got != s.want {
			t.Errorf("%q => %q, want %q", s.msg, got, s.want)
		}
	}
	if bans.IsBanned("alice") {
		t.Error("alice should not be banned at the end")
	}
}

func TestRegistryCommandReplies(t *testing.T) {
	env, _ := newTestEnv(t)
	steps := []struct {
		msg, want string
	}{
		{"!load", "Usage: !load <command>"},
		{"!unload link", "Command link unloaded successfully."},
		{"!unload link", "Failed to unload command link. Make sure the command is loaded."},
		{"!reload link", "Failed to reload command link. Make sure the command is loaded."},
		{"!load nope", "Failed to load command nope. Make sure the command exists."},
		{"!load link", "Command link loaded successfully."},
		{"!reload link", "Command link reloaded successfully."},
	}
	for _, s := range steps {
		if got := run(t, env, s.msg); got != s.want {
			t.Errorf("%q => %q, want %q", s.msg, got, s.want)
		}
	}
}

func TestNewEnvDerivesTables(t *testing.T) {
	cfg := &config.Config{
		Moderators:         []string{"UC_mod"},
		CommandPermissions: map[string]string{"!BAN": "Moderator"},
	}
	env := NewEnv(cfg, nil, nil)
	if !env.Moderators.Contains("UC_mod") {
		t.Error("moderator set missing UC_mod")
	}
	if roles := env.Permissions["!ban"]; len(roles) != 1 || roles[0] != RoleModerator {
		t.Errorf("Permissions[!ban] = %v", roles)
	}
}
