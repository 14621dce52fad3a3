package qbft

import (
	"fmt"
	"testing"
)

func TestQuorumSize(t *testing.T) {
	tests := []struct {
		n      int
		faulty int
		want   int
	}{
		{n: 1, faulty: 0, want: 1},
		{n: 2, faulty: 0, want: 2},
		{n: 3, faulty: 0, want: 2},
		{n: 4, faulty: 1, want: 3},
		{n: 5, faulty: 1, want: 4},
		{n: 6, faulty: 1, want: 4},
		{n: 7, faulty: 2, want: 5},
		{n: 10, faulty: 3, want: 7},
		{n: 13, faulty: 4, want: 9},
		{n: 16, faulty: 5, want: 11},
		{n: 31, faulty: 10, want: 21},
		{n: 73, faulty: 24, want: 49},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d", tt.n), func(t *testing.T) {
			if got := NumFaulty(tt.n); got != tt.faulty {
				t.Errorf("NumFaulty(%d) = %d; want %d", tt.n, got, tt.faulty)
			}
			if got := QuorumSize(tt.n); got != tt.want {
				t.Errorf("QuorumSize(%d) = %d; want %d", tt.n, got, tt.want)
			}
			// two quorums must intersect in at least one correct operator
			if overlap := 2*QuorumSize(tt.n) - tt.n; overlap <= tt.faulty {
				t.Errorf("quorums of size %d in a group of %d overlap in %d operators; want > %d", QuorumSize(tt.n), tt.n, overlap, tt.faulty)
			}
		})
	}
}
