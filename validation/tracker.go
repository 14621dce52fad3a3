// Package validation correlates outstanding validation requests with the proposals awaiting a verdict.
package validation

import (
	"github.com/relab/qbft"
)

// Entry is a proposal awaiting validation.
type Entry struct {
	Round qbft.Round
	Value []byte
}

// Tracker issues validation ids and remembers the proposal each id belongs to.
// Ids start at 1, increase monotonically and are never reused, even after Clear.
//
// Tracker is not safe for concurrent use; it is owned by a single instance.
type Tracker struct {
	lastID   qbft.ValidationID
	inflight map[qbft.ValidationID]Entry
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{inflight: make(map[qbft.ValidationID]Entry)}
}

// Insert records a proposal and returns the id of its validation request.
func (t *Tracker) Insert(round qbft.Round, value []byte) qbft.ValidationID {
	t.lastID++
	t.inflight[t.lastID] = Entry{Round: round, Value: value}
	return t.lastID
}

// Take removes and returns the proposal for id.
// It returns false if the id was never issued or was already taken.
func (t *Tracker) Take(id qbft.ValidationID) (Entry, bool) {
	entry, ok := t.inflight[id]
	if !ok {
		return Entry{}, false
	}
	delete(t.inflight, id)
	return entry, true
}

// Len returns the number of outstanding requests.
func (t *Tracker) Len() int {
	return len(t.inflight)
}

// Clear forgets all outstanding requests.
func (t *Tracker) Clear() {
	clear(t.inflight)
}
