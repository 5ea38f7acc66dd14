package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/chatwarden/banlist"
	"github.com/onnwee/chatwarden/commands"
	"github.com/onnwee/chatwarden/config"
)

var startTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	d     *Dispatcher
	clock *fakeClock
	bans  *banlist.Store
	cfg   *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		LinkText:                     "https://example.com/channel",
		DiscordText:                  "https://discord.gg/example",
		WelcomeMessage:               "Welcome to the chat, {username}!",
		UserCooldownSeconds:          5,
		GlobalCommandCooldownSeconds: 3,
		Moderators:                   []string{"UC_mod"},
		CommandPermissions: map[string]string{
			"!ban":   "moderator",
			"!unban": "moderator",
			"!load":  "moderator",
		},
	}
	cat := commands.DefaultCatalog()
	cat.Add("boom", func() commands.Handler {
		return commands.HandlerFunc(func(context.Context, *commands.Env, string) (string, error) {
			panic("kaboom")
		})
	})
	cat.Add("fail", func() commands.Handler {
		return commands.HandlerFunc(func(context.Context, *commands.Env, string) (string, error) {
			return "", errors.New("backend down")
		})
	})
	cat.Add("quiet", func() commands.Handler {
		return commands.HandlerFunc(func(context.Context, *commands.Env, string) (string, error) {
			return "", nil
		})
	})
	reg := commands.NewRegistry(cat)
	reg.LoadAll(nil)

	bans := banlist.New(filepath.Join(t.TempDir(), "banned_users.json"))
	clk := &fakeClock{t: startTime.Add(time.Minute)}
	d := NewDispatcher(commands.NewEnv(cfg, reg, bans), bans, "ChatWardenBot").WithState(NewState(startTime))
	d.Now = clk.now
	return &fixture{d: d, clock: clk, bans: bans, cfg: cfg}
}

func (f *fixture) msg(id, name, text string) ChatItem {
	return ChatItem{AuthorID: id, AuthorName: name, Text: text, PublishedAt: f.clock.t}
}

func (f *fixture) send(id, name, text string) (string, bool) {
	return f.d.Handle(context.Background(), f.msg(id, name, text))
}

// greet gets the welcome out of the way for each user and moves the clock past the
// per-user cooldown.
func (f *fixture) greet(t *testing.T, users ...[2]string) {
	t.Helper()
	for _, u := range users {
		if _, ok := f.send(u[0], u[1], "hi"); !ok {
			t.Fatalf("expected welcome for %s", u[1])
		}
	}
	f.clock.advance(time.Minute)
}

func (f *fixture) lastGlobal() time.Time {
	return f.d.State().Snapshot().LastGlobalCommand
}

func TestWelcomeBeforeCommand(t *testing.T) {
	f := newFixture(t)
	reply, ok := f.send("u1", "Bob", "!link")
	if !ok || !strings.Contains(reply, "Bob") {
		t.Fatalf("first message reply = %q, %v; want welcome for Bob", reply, ok)
	}
	if reply != "Welcome to the chat, Bob!" {
		t.Errorf("welcome = %q", reply)
	}
	if !f.lastGlobal().IsZero() {
		t.Error("no command should have dispatched on a welcome")
	}

	f.clock.advance(10 * time.Second)
	reply, ok = f.send("u1", "Bob", "!link")
	if !ok || reply != f.cfg.LinkText {
		t.Errorf("second message reply = %q, %v; want link text", reply, ok)
	}
}

func TestStaleFirstPage(t *testing.T) {
	f := newFixture(t)
	old := ChatItem{AuthorID: "u1", AuthorName: "Bob", Text: "!link", PublishedAt: startTime.Add(-time.Minute)}
	if replies := f.d.HandlePage(context.Background(), []ChatItem{old}); len(replies) != 0 {
		t.Fatalf("stale first page produced replies %v", replies)
	}
	snap := f.d.State().Snapshot()
	if snap.SeenUsers != 0 || snap.TrackedUsers != 0 {
		t.Errorf("stale item changed state: %+v", snap)
	}
	if !snap.FirstPageDone {
		t.Error("first page should be marked done")
	}

	replies := f.d.HandlePage(context.Background(), []ChatItem{old})
	if len(replies) != 1 || !strings.Contains(replies[0], "Bob") {
		t.Errorf("later page should process old timestamps, got %v", replies)
	}
}

func TestFirstPageMixedItems(t *testing.T) {
	f := newFixture(t)
	items := []ChatItem{
		{AuthorID: "u1", AuthorName: "Old", Text: "hello", PublishedAt: startTime.Add(-time.Second)},
		f.msg("u2", "New", "hello"),
	}
	replies := f.d.HandlePage(context.Background(), items)
	if len(replies) != 1 || replies[0] != "Welcome to the chat, New!" {
		t.Errorf("replies = %v", replies)
	}
}

func TestSelfMessageIgnored(t *testing.T) {
	f := newFixture(t)
	if reply, ok := f.send("UC_bot", "ChatWardenBot", "!link"); ok {
		t.Errorf("bot's own message produced reply %q", reply)
	}
	if f.d.State().Snapshot().SeenUsers != 0 {
		t.Error("bot should not be marked seen")
	}
}

func TestBannedAuthorIgnored(t *testing.T) {
	f := newFixture(t)
	if _, err := f.bans.Ban("troll"); err != nil {
		t.Fatal(err)
	}
	if reply, ok := f.send("u9", "troll", "hello"); ok {
		t.Errorf("banned user got reply %q", reply)
	}
	if f.d.State().Snapshot().TrackedUsers != 0 {
		t.Error("banned user should not touch cooldown state")
	}
}

func TestUserCooldownFixedWindow(t *testing.T) {
	f := newFixture(t)
	f.send("u1", "Bob", "hi")

	for _, step := range []time.Duration{2 * time.Second, 2 * time.Second} {
		f.clock.advance(step)
		if reply, ok := f.send("u1", "Bob", "!link"); ok {
			t.Fatalf("message within cooldown produced %q", reply)
		}
	}
	// Blocked attempts must not have moved the window: 5s after the welcome passes.
	f.clock.advance(time.Second)
	if reply, ok := f.send("u1", "Bob", "!link"); !ok || reply != f.cfg.LinkText {
		t.Errorf("message at cooldown boundary = %q, %v", reply, ok)
	}
}

func TestGlobalCooldownBoundaries(t *testing.T) {
	f := newFixture(t)
	f.greet(t, [2]string{"a", "Alice"}, [2]string{"b", "Ben"}, [2]string{"c", "Cara"})

	if _, ok := f.send("a", "Alice", "!link"); !ok {
		t.Fatal("first command should dispatch")
	}
	first := f.lastGlobal()

	f.clock.advance(2900 * time.Millisecond)
	if reply, ok := f.send("b", "Ben", "!discord"); ok {
		t.Errorf("command inside global cooldown produced %q", reply)
	}
	if !f.lastGlobal().Equal(first) {
		t.Error("dropped command moved the global timestamp")
	}

	f.clock.advance(100 * time.Millisecond)
	if reply, ok := f.send("c", "Cara", "!discord"); !ok || reply != f.cfg.DiscordText {
		t.Errorf("command at exactly the cooldown = %q, %v", reply, ok)
	}
	if !f.lastGlobal().Equal(f.clock.t) {
		t.Errorf("lastGlobal = %v, want %v", f.lastGlobal(), f.clock.t)
	}
}

func TestBanPermissionScenario(t *testing.T) {
	f := newFixture(t)
	f.greet(t, [2]string{"UC_user", "User"}, [2]string{"UC_mod", "Mod"})

	reply, ok := f.send("UC_user", "User", "!ban bob")
	if !ok || reply != PermissionDenied {
		t.Fatalf("non-moderator !ban = %q, %v", reply, ok)
	}
	if !f.lastGlobal().IsZero() {
		t.Error("denied command moved the global timestamp")
	}
	if f.bans.IsBanned("bob") {
		t.Fatal("bob banned by a non-moderator")
	}

	reply, ok = f.send("UC_mod", "Mod", "!ban bob")
	if !ok || reply != "User bob has been banned from the chat." {
		t.Fatalf("moderator !ban = %q, %v", reply, ok)
	}
	if !f.bans.IsBanned("bob") {
		t.Error("bob should be banned")
	}
	if !f.lastGlobal().Equal(f.clock.t) {
		t.Errorf("lastGlobal = %v, want %v", f.lastGlobal(), f.clock.t)
	}

	f.clock.advance(time.Minute)
	if reply, ok := f.send("UC_bob", "bob", "hello"); ok {
		t.Errorf("banned bob got reply %q", reply)
	}
}

func TestHandlerFailuresBecomeGenericReply(t *testing.T) {
	for _, cmd := range []string{"!boom", "!fail"} {
		t.Run(cmd, func(t *testing.T) {
			f := newFixture(t)
			f.greet(t, [2]string{"u1", "Bob"})
			reply, ok := f.send("u1", "Bob", cmd)
			if !ok || reply != CommandFailed {
				t.Errorf("%s reply = %q, %v; want generic failure", cmd, reply, ok)
			}
			if !f.lastGlobal().Equal(f.clock.t) {
				t.Error("failed handler should still advance the global timestamp")
			}
		})
	}
}

func TestNoReplyCases(t *testing.T) {
	f := newFixture(t)
	f.greet(t, [2]string{"u1", "Bob"}, [2]string{"u2", "Ann"}, [2]string{"u3", "Cy"})

	if reply, ok := f.send("u1", "Bob", "just chatting"); ok {
		t.Errorf("plain chat produced %q", reply)
	}
	if reply, ok := f.send("u2", "Ann", "!doesnotexist"); ok {
		t.Errorf("unknown command produced %q", reply)
	}
	if _, ok := f.send("u3", "Cy", "!quiet"); ok {
		t.Error("handler with empty reply should produce no reply")
	}
	if f.lastGlobal().IsZero() {
		t.Error("!quiet dispatched and should advance the global timestamp")
	}
}

func TestUnloadedCommandIgnored(t *testing.T) {
	f := newFixture(t)
	f.greet(t, [2]string{"UC_mod", "Mod"})
	if reply, _ := f.send("UC_mod", "Mod", "!unload link"); reply != "Command link unloaded successfully." {
		t.Fatalf("unload reply = %q", reply)
	}
	f.clock.advance(time.Minute)
	if reply, ok := f.send("UC_mod", "Mod", "!link"); ok {
		t.Errorf("unloaded !link produced %q", reply)
	}
}
