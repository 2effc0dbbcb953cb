// Package state persists the last-announced free-games sets and the date
// of the last completed daily check.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/epic"
)

const stateFileName = "posted_games.json"

// Store owns the on-disk state file. All reads and writes go through its
// accessors; the reconcile engine is the only writer. Writes replace the
// whole file via a temp file and rename, so a crash mid-write never leaves
// a partial record behind.
type Store struct {
	mu   sync.RWMutex
	path string
	lock *Lock
	data record
}

type record struct {
	Current      []epic.Game `json:"current"`
	Upcoming     []epic.Game `json:"upcoming"`
	LastDailyRun string      `json:"last_daily_run,omitempty"`
}

// Open loads the state file from dir, creating the directory if needed and
// starting from empty state when the file is missing or unreadable. A file
// lock beside the state file keeps a second fred process out of the same
// directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	lock, err := Acquire(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{path: filepath.Join(dir, stateFileName), lock: lock}
	s.data = load(s.path)
	return s, nil
}

// A corrupt state file is treated like a missing one: we start empty and
// re-announce rather than refuse to boot.
func load(path string) record {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			utils.Log.Warnf("Could not read state file %s, starting empty: %v", path, err)
		}
		return record{}
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		utils.Log.Warnf("State file %s is corrupt, starting empty: %v", path, err)
		return record{}
	}
	return rec
}

func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Release()
}

// Current returns a copy of the last-announced current set.
func (s *Store) Current() []epic.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]epic.Game(nil), s.data.Current...)
}

// Upcoming returns a copy of the known upcoming set.
func (s *Store) Upcoming() []epic.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]epic.Game(nil), s.data.Upcoming...)
}

// LastDailyRun returns the local date (YYYY-MM-DD) of the last completed
// daily check, or "" if none has completed yet.
func (s *Store) LastDailyRun() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.LastDailyRun
}

// Replace swaps in new current and upcoming sets and advances the daily-run
// date, all in one atomic file rewrite. Any upcoming entry whose title is
// also in the current set is dropped before writing; no title may appear in
// both sets.
func (s *Store) Replace(current, upcoming []epic.Game, runDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentTitles := make(map[string]bool, len(current))
	for _, g := range current {
		currentTitles[g.Title] = true
	}
	cleaned := make([]epic.Game, 0, len(upcoming))
	for _, g := range upcoming {
		if currentTitles[g.Title] {
			continue
		}
		cleaned = append(cleaned, g)
	}

	next := record{
		Current:      append([]epic.Game(nil), current...),
		Upcoming:     cleaned,
		LastDailyRun: runDate,
	}
	if err := write(s.path, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

// MarkDailyRun advances only the daily-run date, leaving both sets as they
// are. Used when a scheduled check confirms nothing changed.
func (s *Store) MarkDailyRun(runDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data
	next.LastDailyRun = runDate
	if err := write(s.path, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func write(path string, rec record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
