package validation

import (
	"bytes"
	"testing"

	"github.com/relab/qbft"
)

func TestInsertTake(t *testing.T) {
	tr := NewTracker()
	id := tr.Insert(3, []byte("v"))

	entry, ok := tr.Take(id)
	if !ok {
		t.Fatal("Take did not find an inserted id")
	}
	if entry.Round != 3 || !bytes.Equal(entry.Value, []byte("v")) {
		t.Errorf("Take returned %+v, want round 3 and value v", entry)
	}
	if _, ok := tr.Take(id); ok {
		t.Error("Take returned the same id twice")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestUnknownID(t *testing.T) {
	tr := NewTracker()
	tr.Insert(0, nil)
	if _, ok := tr.Take(qbft.ValidationID(99)); ok {
		t.Error("Take found an id that was never issued")
	}
	if tr.Len() != 1 {
		t.Errorf("Take of an unknown id changed the tracker: Len() = %d, want 1", tr.Len())
	}
}

func TestIDsAreMonotonic(t *testing.T) {
	tr := NewTracker()
	var prev qbft.ValidationID
	for i := range 10 {
		id := tr.Insert(qbft.Round(i), nil)
		if id <= prev {
			t.Fatalf("id %d issued after %d", id, prev)
		}
		prev = id
		if i%3 == 0 {
			tr.Clear()
		}
	}
	if _, ok := tr.Take(1); ok {
		t.Error("Clear did not remove outstanding requests")
	}
}
