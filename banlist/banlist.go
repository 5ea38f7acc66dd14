// Package banlist persists the set of banned chat display names as a JSON document
// of the form {"banned_users": [...]}. Every call reads the file fresh; mutations
// rewrite the whole document. The store is not designed for concurrent writers.
package banlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Outcome reports what a Ban or Unban call did.
type Outcome int

const (
	Banned Outcome = iota
	AlreadyBanned
	Unbanned
	NotBanned
)

func (o Outcome) String() string {
	switch o {
	case Banned:
		return "banned"
	case AlreadyBanned:
		return "already_banned"
	case Unbanned:
		return "unbanned"
	case NotBanned:
		return "not_banned"
	default:
		return "unknown"
	}
}

type document struct {
	BannedUsers []string `json:"banned_users"`
}

// Store is a file-backed ban list.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted set. A missing or unreadable file yields an empty set;
// a corrupt file is logged and also treated as empty.
func (s *Store) Load() map[string]struct{} {
	set := make(map[string]struct{})
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Error("error loading banned users", slog.String("path", s.path), slog.Any("err", err))
		}
		return set
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Error("error loading banned users", slog.String("path", s.path), slog.Any("err", err))
		return set
	}
	for _, name := range doc.BannedUsers {
		set[name] = struct{}{}
	}
	return set
}

// Save writes the set atomically (temp file + rename). Names are written sorted.
func (s *Store) Save(set map[string]struct{}) error {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	data, err := json.MarshalIndent(document{BannedUsers: names}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode banned users: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".banned-*.json")
	if err != nil {
		return fmt.Errorf("save banned users: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save banned users: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save banned users: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save banned users: %w", err)
	}
	return nil
}

// IsBanned reports whether name is in the persisted set. It never fails.
func (s *Store) IsBanned(name string) bool {
	_, ok := s.Load()[name]
	return ok
}

// Ban adds name to the set. Banning an already banned name is a no-op.
func (s *Store) Ban(name string) (Outcome, error) {
	set := s.Load()
	if _, ok := set[name]; ok {
		return AlreadyBanned, nil
	}
	set[name] = struct{}{}
	if err := s.Save(set); err != nil {
		return Banned, err
	}
	slog.Info("user banned", slog.String("user", name))
	return Banned, nil
}

// Unban removes name from the set.
func (s *Store) Unban(name string) (Outcome, error) {
	set := s.Load()
	if _, ok := set[name]; !ok {
		return NotBanned, nil
	}
	delete(set, name)
	if err := s.Save(set); err != nil {
		return Unbanned, err
	}
	slog.Info("user unbanned", slog.String("user", name))
	return Unbanned, nil
}

// List returns the banned names sorted.
func (s *Store) List() []string {
	set := s.Load()
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
