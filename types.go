package qbft

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"
)

// OperatorID uniquely identifies an operator within a membership.
type OperatorID uint64

// ToBytes returns the operator id as bytes.
func (id OperatorID) ToBytes() []byte {
	var idBytes [8]byte
	binary.LittleEndian.PutUint64(idBytes[:], uint64(id))
	return idBytes[:]
}

// Round is a number that identifies one attempt at agreeing on a value.
type Round uint64

// Next returns the round following r.
func (r Round) Next() Round {
	return r + 1
}

// ToBytes returns the round as bytes.
func (r Round) ToBytes() []byte {
	var roundBytes [8]byte
	binary.LittleEndian.PutUint64(roundBytes[:], uint64(r))
	return roundBytes[:]
}

// InstanceHeight identifies one consensus run. Different instances run by the
// same operators are told apart by their heights.
type InstanceHeight uint64

// ValidationID correlates a validation request with its response.
type ValidationID uint64

// Membership is the fixed, canonically ordered set of operators taking part in an instance.
// The zero value is an empty membership.
type Membership struct {
	ids []OperatorID
}

// NewMembership returns a membership containing the given ids.
// Duplicates are removed and the ids are sorted in ascending order,
// so that every operator derives the same ordering from the same set.
func NewMembership(ids ...OperatorID) Membership {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return Membership{ids: slices.Compact(sorted)}
}

// Len returns the number of operators.
func (m Membership) Len() int {
	return len(m.ids)
}

// At returns the operator at position i in the canonical ordering.
func (m Membership) At(i int) OperatorID {
	return m.ids[i]
}

// Contains returns true if the operator is a member.
func (m Membership) Contains(id OperatorID) bool {
	_, ok := slices.BinarySearch(m.ids, id)
	return ok
}

// Index returns the position of id in the canonical ordering, or -1.
func (m Membership) Index(id OperatorID) int {
	i, ok := slices.BinarySearch(m.ids, id)
	if !ok {
		return -1
	}
	return i
}

// IDs returns a copy of the operator ids in canonical order.
func (m Membership) IDs() []OperatorID {
	return slices.Clone(m.ids)
}

func (m Membership) String() string {
	var sb strings.Builder
	sb.WriteString("[ ")
	for _, id := range m.ids {
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
		sb.WriteString(" ")
	}
	sb.WriteString("]")
	return sb.String()
}
