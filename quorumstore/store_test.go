package quorumstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/relab/qbft"
)

type vote struct {
	round    qbft.Round
	kind     qbft.VoteKind
	operator qbft.OperatorID
	value    string
}

func TestCountMatching(t *testing.T) {
	tests := []struct {
		name  string
		votes []vote
		count map[string]int // value -> want count for (round 1, prepare)
	}{
		{"NoVotes", nil, map[string]int{"a": 0}},
		{"OneVote", []vote{{1, qbft.VotePrepare, 1, "a"}}, map[string]int{"a": 1, "b": 0}},
		{"ThreeDistinct", []vote{{1, qbft.VotePrepare, 1, "a"}, {1, qbft.VotePrepare, 2, "a"}, {1, qbft.VotePrepare, 3, "a"}}, map[string]int{"a": 3}},
		{"SameOperatorTwice", []vote{{1, qbft.VotePrepare, 1, "a"}, {1, qbft.VotePrepare, 1, "a"}}, map[string]int{"a": 1}},
		{"SameOperatorChangesValue", []vote{{1, qbft.VotePrepare, 1, "a"}, {1, qbft.VotePrepare, 1, "b"}}, map[string]int{"a": 0, "b": 1}},
		{"SplitValues", []vote{{1, qbft.VotePrepare, 1, "a"}, {1, qbft.VotePrepare, 2, "b"}, {1, qbft.VotePrepare, 3, "a"}}, map[string]int{"a": 2, "b": 1}},
		{"OtherRoundIgnored", []vote{{1, qbft.VotePrepare, 1, "a"}, {2, qbft.VotePrepare, 2, "a"}}, map[string]int{"a": 1}},
		{"OtherKindIgnored", []vote{{1, qbft.VotePrepare, 1, "a"}, {1, qbft.VoteConfirm, 2, "a"}}, map[string]int{"a": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for _, v := range tt.votes {
				s.Record(v.round, v.kind, v.operator, []byte(v.value))
			}
			for value, want := range tt.count {
				if got := s.CountMatching(1, qbft.VotePrepare, []byte(value)); got != want {
					t.Errorf("CountMatching(%q) = %d, want %d", value, got, want)
				}
			}
		})
	}
}

func TestFloodingDoesNotInflateTally(t *testing.T) {
	s := New()
	for range 100 {
		s.Record(0, qbft.VoteConfirm, 3, []byte("v"))
	}
	if got := s.CountMatching(0, qbft.VoteConfirm, []byte("v")); got != 1 {
		t.Fatalf("CountMatching after flooding = %d, want 1", got)
	}
}

func TestRecordReportsChanges(t *testing.T) {
	s := New()
	if !s.Record(0, qbft.VotePrepare, 1, []byte("a")) {
		t.Error("first vote was not reported as new")
	}
	if s.Record(0, qbft.VotePrepare, 1, []byte("a")) {
		t.Error("repeated vote was reported as new")
	}
	if !s.Record(0, qbft.VotePrepare, 1, []byte("b")) {
		t.Error("changed vote was not reported")
	}
}

func TestRecordCopiesValue(t *testing.T) {
	s := New()
	value := []byte("a")
	s.Record(0, qbft.VotePrepare, 1, value)
	value[0] = 'b'
	if got := s.CountMatching(0, qbft.VotePrepare, []byte("a")); got != 1 {
		t.Errorf("store was affected by modifying the caller's slice")
	}
}

func TestNilValues(t *testing.T) {
	s := New()
	s.Record(4, qbft.VoteRoundChange, 1, nil)
	s.Record(4, qbft.VoteRoundChange, 2, []byte{})
	if got := s.CountMatching(4, qbft.VoteRoundChange, nil); got != 2 {
		t.Errorf("CountMatching(nil) = %d, want 2", got)
	}
}

func TestVotersAndReset(t *testing.T) {
	s := New()
	s.Record(0, qbft.VotePrepare, 3, nil)
	s.Record(0, qbft.VotePrepare, 1, nil)
	s.Record(1, qbft.VotePrepare, 2, nil)
	s.Record(2, qbft.VoteConfirm, 4, nil)

	if diff := cmp.Diff([]qbft.OperatorID{1, 3}, s.Voters(0, qbft.VotePrepare)); diff != "" {
		t.Errorf("Voters() mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", s.Len())
	}
	if got := s.Voters(0, qbft.VotePrepare); len(got) != 0 {
		t.Errorf("Voters() after Reset = %v, want none", got)
	}
}

func TestLeading(t *testing.T) {
	tests := []struct {
		name      string
		votes     []vote
		wantValue string
		wantCount int
	}{
		{"NoVotes", nil, "", 0},
		{"Majority", []vote{{0, qbft.VotePrepare, 1, "b"}, {0, qbft.VotePrepare, 2, "a"}, {0, qbft.VotePrepare, 3, "b"}}, "b", 2},
		{"TieTakesSmallest", []vote{{0, qbft.VotePrepare, 1, "b"}, {0, qbft.VotePrepare, 2, "a"}}, "a", 1},
		{"OtherRoundIgnored", []vote{{0, qbft.VotePrepare, 1, "a"}, {1, qbft.VotePrepare, 2, "b"}, {1, qbft.VotePrepare, 3, "b"}}, "a", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for _, v := range tt.votes {
				s.Record(v.round, v.kind, v.operator, []byte(v.value))
			}
			value, count := s.Leading(0, qbft.VotePrepare)
			if string(value) != tt.wantValue || count != tt.wantCount {
				t.Errorf("Leading() = (%q, %d), want (%q, %d)", value, count, tt.wantValue, tt.wantCount)
			}
		})
	}
}
