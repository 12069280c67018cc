package store

import (
	"sync"

	"light_control/internal/models"
)

// ScheduleStore holds the board's schedule list exactly as last fetched.
type ScheduleStore struct {
	mu       sync.RWMutex
	entries  []models.ScheduleEntry
	onChange func([]models.ScheduleEntry)
}

// NewScheduleStore returns an empty store. onChange, if non-nil, receives a
// copy of the list after each ReplaceAll.
func NewScheduleStore(onChange func([]models.ScheduleEntry)) *ScheduleStore {
	return &ScheduleStore{
		entries:  []models.ScheduleEntry{},
		onChange: onChange,
	}
}

// ReplaceAll swaps in entries as the authoritative list. No merge, no sort.
func (s *ScheduleStore) ReplaceAll(entries []models.ScheduleEntry) {
	s.mu.Lock()
	s.entries = cloneEntries(entries)
	snap := cloneEntries(s.entries)
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// Snapshot returns a copy of the list in board order.
func (s *ScheduleStore) Snapshot() []models.ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEntries(s.entries)
}

// Len returns the number of entries.
func (s *ScheduleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cloneEntries(in []models.ScheduleEntry) []models.ScheduleEntry {
	out := make([]models.ScheduleEntry, len(in))
	copy(out, in)
	return out
}
