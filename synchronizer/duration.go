package synchronizer

import "time"

// RoundDuration determines the duration of a round.
type RoundDuration interface {
	// Duration returns the duration that the next round should last.
	Duration() time.Duration
	// RoundStarted is called by the instance when starting a new round.
	RoundStarted()
	// RoundSucceeded is called by the instance when a round ended with a decision.
	RoundSucceeded()
	// RoundTimeout is called by the instance when a round timed out.
	RoundTimeout()
}

// FixedDuration is a RoundDuration with a fixed duration.
type FixedDuration struct {
	duration time.Duration
}

// NewFixedDuration returns a RoundDuration with a fixed duration.
func NewFixedDuration(duration time.Duration) *FixedDuration {
	return &FixedDuration{duration: duration}
}

// Duration returns the fixed duration.
func (f *FixedDuration) Duration() time.Duration {
	return f.duration
}

// RoundStarted does nothing for FixedDuration.
func (f *FixedDuration) RoundStarted() {}

// RoundSucceeded does nothing for FixedDuration.
func (f *FixedDuration) RoundSucceeded() {}

// RoundTimeout does nothing for FixedDuration.
func (f *FixedDuration) RoundTimeout() {}

// BackoffDuration multiplies the round duration on every timeout, up to a maximum.
// A successful round resets the duration to its starting value.
type BackoffDuration struct {
	start   time.Duration
	max     time.Duration // upper bound on round duration; 0 means unbounded
	mul     float64       // on timeouts, multiply the current duration by this number (should be > 1)
	current time.Duration
}

// NewBackoffDuration returns a RoundDuration that starts at start and grows by multiplier
// on every timeout, never exceeding max (if max > 0).
func NewBackoffDuration(start, max time.Duration, multiplier float64) *BackoffDuration {
	return &BackoffDuration{
		start:   start,
		max:     max,
		mul:     multiplier,
		current: start,
	}
}

// Duration returns the current round duration.
func (b *BackoffDuration) Duration() time.Duration {
	return b.current
}

// RoundStarted does nothing for BackoffDuration.
func (b *BackoffDuration) RoundStarted() {}

// RoundSucceeded resets the duration.
func (b *BackoffDuration) RoundSucceeded() {
	b.current = b.start
}

// RoundTimeout increases the duration of the next round.
func (b *BackoffDuration) RoundTimeout() {
	next := time.Duration(float64(b.current) * b.mul)
	if b.max > 0 && next > b.max {
		next = b.max
	}
	b.current = next
}

var (
	_ RoundDuration = (*FixedDuration)(nil)
	_ RoundDuration = (*BackoffDuration)(nil)
)
