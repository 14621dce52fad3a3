// Package synchronizer provides the round timer that drives round changes in a consensus instance.
package synchronizer

import "time"

// Timer is a resettable one-shot timer.
type Timer interface {
	// C returns the channel on which expiry is signalled.
	C() <-chan time.Time
	// Reset restarts the timer with the given duration.
	// An expiry that was pending but not yet received is discarded.
	Reset(d time.Duration)
	// Stop stops the timer.
	Stop()
}

// RoundTimer signals the expiry of the current round.
// The instance resets it whenever it enters a new round, so each round gets a fresh budget.
type RoundTimer struct {
	timer *time.Timer
}

// NewRoundTimer returns a stopped RoundTimer. Call Reset to arm it.
func NewRoundTimer() *RoundTimer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &RoundTimer{timer: t}
}

// C returns the expiry channel.
func (rt *RoundTimer) C() <-chan time.Time {
	return rt.timer.C
}

// Reset restarts the timer, discarding any expiry that has not been received.
func (rt *RoundTimer) Reset(d time.Duration) {
	rt.Stop()
	rt.timer.Reset(d)
}

// Stop stops the timer and drains a pending expiry.
func (rt *RoundTimer) Stop() {
	if !rt.timer.Stop() {
		select {
		case <-rt.timer.C:
		default:
		}
	}
}

var _ Timer = (*RoundTimer)(nil)

// ManualTimer is a Timer that only fires when told to. It is meant for tests.
type ManualTimer struct {
	c      chan time.Time
	resets chan time.Duration
}

// NewManualTimer returns a new ManualTimer.
func NewManualTimer() *ManualTimer {
	return &ManualTimer{
		c:      make(chan time.Time, 1),
		resets: make(chan time.Duration, 100),
	}
}

// C returns the expiry channel.
func (mt *ManualTimer) C() <-chan time.Time {
	return mt.c
}

// Reset discards a pending expiry and records the requested duration.
func (mt *ManualTimer) Reset(d time.Duration) {
	mt.drain()
	select {
	case mt.resets <- d:
	default:
	}
}

// Stop discards a pending expiry.
func (mt *ManualTimer) Stop() {
	mt.drain()
}

func (mt *ManualTimer) drain() {
	select {
	case <-mt.c:
	default:
	}
}

// Fire signals expiry. It does not block if an expiry is already pending.
func (mt *ManualTimer) Fire() {
	select {
	case mt.c <- time.Now():
	default:
	}
}

// Resets returns a channel that receives the duration of every Reset call.
func (mt *ManualTimer) Resets() <-chan time.Duration {
	return mt.resets
}

var _ Timer = (*ManualTimer)(nil)
