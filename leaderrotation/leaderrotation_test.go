package leaderrotation_test

import (
	"testing"

	"github.com/relab/qbft"
	"github.com/relab/qbft/leaderrotation"
)

// checkUniqueLeader fails the test unless exactly one member leads each round.
func checkUniqueLeader(t *testing.T, ls qbft.LeaderSelector, m qbft.Membership, rounds int) {
	t.Helper()
	for r := range qbft.Round(rounds) {
		leaders := 0
		for i := range m.Len() {
			if ls.IsLeader(r, m.At(i), m) {
				leaders++
			}
		}
		if leaders != 1 {
			t.Errorf("round %d has %d leaders, want 1", r, leaders)
		}
	}
}

func TestRoundRobin(t *testing.T) {
	length := 4
	cycles := 3

	m := qbft.NewMembership(1, 2, 3, 4)
	rr := leaderrotation.NewRoundRobin()

	for r := range qbft.Round(length * cycles) {
		expectedLeader := m.At(int(r) % length)
		if !rr.IsLeader(r, expectedLeader, m) {
			t.Errorf("round %d: operator %d is not the leader", r, expectedLeader)
		}
	}
	checkUniqueLeader(t, rr, m, length*cycles)
}

func TestRoundRobinIgnoresInputOrder(t *testing.T) {
	a := qbft.NewMembership(7, 3, 5)
	b := qbft.NewMembership(5, 7, 3)
	rr := leaderrotation.NewRoundRobin()
	for r := range qbft.Round(9) {
		la, _ := qbft.LeaderOf(rr, r, a)
		lb, _ := qbft.LeaderOf(rr, r, b)
		if la != lb {
			t.Errorf("round %d: leaders differ between equal memberships: %d != %d", r, la, lb)
		}
	}
}

func TestFixed(t *testing.T) {
	m := qbft.NewMembership(1, 2, 3, 4)

	f := leaderrotation.NewFixed(3)
	for r := range qbft.Round(5) {
		if !f.IsLeader(r, 3, m) {
			t.Errorf("round %d: fixed leader 3 is not the leader", r)
		}
	}
	checkUniqueLeader(t, f, m, 5)

	// a leader outside the membership falls back to the first member
	outside := leaderrotation.NewFixed(9)
	if !outside.IsLeader(0, 1, m) {
		t.Error("fixed rotation with a non-member leader did not fall back to the first member")
	}
	checkUniqueLeader(t, outside, m, 5)
}

func TestWeighted(t *testing.T) {
	m := qbft.NewMembership(1, 2, 3, 4)
	weights := map[qbft.OperatorID]uint{1: 10, 2: 1, 3: 0}

	a := leaderrotation.NewWeighted(42, weights)
	b := leaderrotation.NewWeighted(42, weights)

	checkUniqueLeader(t, a, m, 50)

	for r := range qbft.Round(50) {
		la, _ := qbft.LeaderOf(a, r, m)
		lb, _ := qbft.LeaderOf(b, r, m)
		if la != lb {
			t.Fatalf("round %d: selectors with the same seed disagree: %d != %d", r, la, lb)
		}
		if la == 3 {
			t.Errorf("round %d: operator with weight 0 was chosen", r)
		}
	}
}

func TestWeightedAllZeroFallsBack(t *testing.T) {
	m := qbft.NewMembership(1, 2, 3)
	w := leaderrotation.NewWeighted(1, map[qbft.OperatorID]uint{1: 0, 2: 0, 3: 0})
	checkUniqueLeader(t, w, m, 6)
	if !w.IsLeader(4, m.At(1), m) {
		t.Error("all-zero weights did not fall back to round-robin")
	}
}

func TestEmptyMembership(t *testing.T) {
	var m qbft.Membership
	for _, ls := range []qbft.LeaderSelector{
		leaderrotation.NewRoundRobin(),
		leaderrotation.NewFixed(1),
		leaderrotation.NewWeighted(0, nil),
	} {
		if ls.IsLeader(0, 1, m) {
			t.Errorf("%T names a leader in an empty membership", ls)
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range append(leaderrotation.Names(), "") {
		if _, err := leaderrotation.New(name, leaderrotation.Options{Leader: 1}); err != nil {
			t.Errorf("New(%q) failed: %v", name, err)
		}
	}
	if _, err := leaderrotation.New("carousel", leaderrotation.Options{}); err == nil {
		t.Error("New accepted an unknown leader rotation")
	}
}
