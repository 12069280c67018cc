package models

import (
	"fmt"
	"strconv"
)

// RelayCount is the number of relays on the board.
const RelayCount = 4

// RelayID identifies a relay, 1..RelayCount.
type RelayID int

// Valid reports whether id names a physical relay.
func (id RelayID) Valid() bool {
	return id >= 1 && id <= RelayCount
}

// Index returns the zero-based array position of id.
func (id RelayID) Index() int {
	return int(id) - 1
}

func (id RelayID) String() string {
	return strconv.Itoa(int(id))
}

// ParseRelayID parses a decimal relay number and checks its range.
func ParseRelayID(s string) (RelayID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid relay %q: %w", s, err)
	}
	id := RelayID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("relay %d out of range 1..%d", n, RelayCount)
	}
	return id, nil
}

// RelayState is the last known state of one relay.
type RelayState struct {
	ID      RelayID `json:"id"`
	On      bool    `json:"on"`
	Pending bool    `json:"pending"` // a toggle command is in flight
}

// RelaySnapshot is a value copy of all relay states, indexed by RelayID.Index().
type RelaySnapshot [RelayCount]RelayState

// Get returns the state for id. It panics on an invalid id.
func (s RelaySnapshot) Get(id RelayID) RelayState {
	return s[id.Index()]
}

// OnValues returns the on/off values in relay order.
func (s RelaySnapshot) OnValues() [RelayCount]bool {
	var out [RelayCount]bool
	for i, st := range s {
		out[i] = st.On
	}
	return out
}
