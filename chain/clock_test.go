package chain

import (
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	clock := NewManualClock(10)
	if h := clock.CurrentHeight(); h != 10 {
		t.Fatalf("height = %d, want 10", h)
	}
	clock.Advance(5)
	clock.Advance(0)
	if h := clock.CurrentHeight(); h != 15 {
		t.Fatalf("height = %d, want 15", h)
	}
	if clock.CurrentTime().IsZero() {
		t.Fatal("manual clock time should be set")
	}
}

func TestLocalClockTicks(t *testing.T) {
	clock := NewLocalClock(100, 5*time.Millisecond)
	go clock.Run()
	defer clock.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for clock.CurrentHeight() < 103 {
		if time.Now().After(deadline) {
			t.Fatalf("clock stuck at %d", clock.CurrentHeight())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestLocalClockStopIsIdempotent(t *testing.T) {
	clock := NewLocalClock(0, time.Millisecond)
	go clock.Run()
	clock.Stop()
	clock.Stop()

	height := clock.CurrentHeight()
	time.Sleep(20 * time.Millisecond)
	// One in-flight tick may still land after Stop.
	if clock.CurrentHeight() > height+1 {
		t.Fatalf("clock kept ticking after stop: %d -> %d", height, clock.CurrentHeight())
	}
}
