package chat

import (
	"sync"
	"time"
)

// State is the mutable state of one dispatch loop: rate-limit timestamps, the set of
// welcomed users and whether the first page has been processed. The dispatcher is the
// only writer.
type State struct {
	mu sync.Mutex

	StartedAt time.Time

	firstPageDone     bool
	lastGlobalCommand time.Time
	lastUserMessage   map[string]time.Time
	seen              map[string]struct{}
}

// NewState returns empty state for a process started at startedAt.
func NewState(startedAt time.Time) *State {
	return &State{
		StartedAt:       startedAt.UTC(),
		lastUserMessage: make(map[string]time.Time),
		seen:            make(map[string]struct{}),
	}
}

// Snapshot is a point-in-time copy of State for status reporting.
type Snapshot struct {
	StartedAt         time.Time `json:"started_at"`
	FirstPageDone     bool      `json:"first_page_done"`
	SeenUsers         int       `json:"seen_users"`
	TrackedUsers      int       `json:"tracked_users"`
	LastGlobalCommand time.Time `json:"last_global_command,omitzero"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		StartedAt:         s.StartedAt,
		FirstPageDone:     s.firstPageDone,
		SeenUsers:         len(s.seen),
		TrackedUsers:      len(s.lastUserMessage),
		LastGlobalCommand: s.lastGlobalCommand,
	}
}

func (s *State) isStale(item ChatItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstPageDone || item.PublishedAt.IsZero() {
		return false
	}
	return item.PublishedAt.Before(s.StartedAt)
}

func (s *State) markFirstPageDone() {
	s.mu.Lock()
	s.firstPageDone = true
	s.mu.Unlock()
}

// passUserCooldown records now for userID and reports true if the user's last pass is
// at least cooldown ago. A blocked attempt leaves the timestamp untouched.
func (s *State) passUserCooldown(userID string, now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastUserMessage[userID]; ok && now.Sub(last) < cooldown {
		return false
	}
	s.lastUserMessage[userID] = now
	return true
}

// markSeen adds userID to the welcomed set and reports whether it was new.
func (s *State) markSeen(userID string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[userID]; ok {
		return false, len(s.seen)
	}
	s.seen[userID] = struct{}{}
	return true, len(s.seen)
}

func (s *State) globalCooldownElapsed(now time.Time, cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGlobalCommand.IsZero() || now.Sub(s.lastGlobalCommand) >= cooldown
}

// recordGlobalCommand advances the global timestamp; it never moves backwards.
func (s *State) recordGlobalCommand(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.lastGlobalCommand) {
		s.lastGlobalCommand = now
	}
}
