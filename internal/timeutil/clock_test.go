package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_NewTimer(t *testing.T) {
	clock := RealClock{}
	timer := clock.NewTimer(10 * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Error("timer did not fire")
	}
}

func TestMockClock_Now(t *testing.T) {
	fixed := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := NewMockClock(fixed)

	if got := clock.Now(); !got.Equal(fixed) {
		t.Errorf("got %v, want %v", got, fixed)
	}
	clock.Advance(time.Minute)
	if got := clock.Since(fixed); got != time.Minute {
		t.Errorf("Since() = %v, want 1m", got)
	}
}

func TestMockTimer_FiresOnDeadline(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(300 * time.Millisecond)

	clock.Advance(299 * time.Millisecond)
	select {
	case <-timer.C():
		t.Fatal("timer fired early")
	default:
	}

	clock.Advance(time.Millisecond)
	select {
	case <-timer.C():
	default:
		t.Fatal("timer did not fire at its deadline")
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("PendingTimers() = %d, want 0", clock.PendingTimers())
	}
}

func TestMockTimer_Stop(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := clock.NewTimer(time.Second)

	if !timer.Stop() {
		t.Error("Stop() on an active timer should report true")
	}
	if timer.Stop() {
		t.Error("second Stop() should report false")
	}

	clock.Advance(2 * time.Second)
	select {
	case <-timer.C():
		t.Error("stopped timer fired")
	default:
	}
}
