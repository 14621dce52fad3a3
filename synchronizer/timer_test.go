package synchronizer

import (
	"testing"
	"time"
)

func TestRoundTimerFires(t *testing.T) {
	rt := NewRoundTimer()
	defer rt.Stop()

	rt.Reset(10 * time.Millisecond)
	select {
	case <-rt.C():
	case <-time.After(time.Second):
		t.Fatal("round timer did not fire")
	}
}

func TestRoundTimerStartsStopped(t *testing.T) {
	rt := NewRoundTimer()
	select {
	case <-rt.C():
		t.Fatal("timer fired before it was reset")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRoundTimerResetDiscardsPendingExpiry(t *testing.T) {
	rt := NewRoundTimer()
	defer rt.Stop()

	rt.Reset(time.Millisecond)
	// let the timer expire without receiving from its channel
	time.Sleep(20 * time.Millisecond)

	rt.Reset(time.Hour)
	select {
	case <-rt.C():
		t.Fatal("expiry from the previous round leaked into the new round")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestManualTimer(t *testing.T) {
	mt := NewManualTimer()
	mt.Reset(time.Second)
	if d := <-mt.Resets(); d != time.Second {
		t.Errorf("Resets() = %v, want %v", d, time.Second)
	}

	mt.Fire()
	mt.Fire() // does not block
	<-mt.C()

	mt.Fire()
	mt.Reset(time.Second)
	select {
	case <-mt.C():
		t.Fatal("Reset did not discard the pending expiry")
	default:
	}
}
