// Package store holds the client's last known view of the board.
package store

import (
	"sync"

	"light_control/internal/models"
)

// RelayStore holds on/off and in-flight state for every relay.
// Readers may call Snapshot from any goroutine; writers are expected to be
// serialized by the caller.
type RelayStore struct {
	mu       sync.RWMutex
	relays   models.RelaySnapshot
	onChange func(models.RelaySnapshot)
}

// NewRelayStore returns a store with every relay off and idle. onChange, if
// non-nil, receives a snapshot after each mutation.
func NewRelayStore(onChange func(models.RelaySnapshot)) *RelayStore {
	s := &RelayStore{onChange: onChange}
	for i := range s.relays {
		s.relays[i].ID = models.RelayID(i + 1)
	}
	return s
}

// Snapshot returns a copy of the current relay states.
func (s *RelayStore) Snapshot() models.RelaySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.relays
}

// ApplyStatus sets on=(value==1) for every relay. A relay absent from status
// is off. Pending flags are left alone: only a toggle's own completion clears
// them.
func (s *RelayStore) ApplyStatus(status map[models.RelayID]int) {
	s.mu.Lock()
	for i := range s.relays {
		s.relays[i].On = status[models.RelayID(i+1)] == 1
	}
	snap := s.relays
	s.mu.Unlock()
	s.notify(snap)
}

// BeginToggle marks id as having a command in flight. It returns false, and
// changes nothing, if one is already pending or id is not a relay.
func (s *RelayStore) BeginToggle(id models.RelayID) bool {
	if !id.Valid() {
		return false
	}
	s.mu.Lock()
	if s.relays[id.Index()].Pending {
		s.mu.Unlock()
		return false
	}
	s.relays[id.Index()].Pending = true
	snap := s.relays
	s.mu.Unlock()
	s.notify(snap)
	return true
}

// CompleteToggle clears the pending flag for id. On success with a known
// newOn the relay takes that value; otherwise on is left as it was.
func (s *RelayStore) CompleteToggle(id models.RelayID, success bool, newOn *bool) {
	if !id.Valid() {
		return
	}
	s.mu.Lock()
	r := &s.relays[id.Index()]
	r.Pending = false
	if success && newOn != nil {
		r.On = *newOn
	}
	snap := s.relays
	s.mu.Unlock()
	s.notify(snap)
}

func (s *RelayStore) notify(snap models.RelaySnapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
