package tick

import (
	"context"
	"testing"
	"time"
)

func TestAdvanceIsExactlyOne(t *testing.T) {
	c := NewClock(50)
	for i := 1; i <= 10; i++ {
		if got := c.Advance(); got != Tick(i) {
			t.Fatalf("expected tick %d, got %d", i, got)
		}
	}
	c.Reset(100)
	if got := c.Advance(); got != 101 {
		t.Fatalf("expected 101 after reset, got %d", got)
	}
}

func TestIntervalAndDT(t *testing.T) {
	c := NewClock(50)
	if c.Interval() != 20*time.Millisecond {
		t.Fatalf("expected 20ms interval, got %s", c.Interval())
	}
	if c.DT() != 0.02 {
		t.Fatalf("expected dt 0.02, got %f", c.DT())
	}
	if NewClock(0).Rate() != 1 {
		t.Fatalf("expected non-positive rate to clamp to 1")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewClock(200)
	ctx, cancel := context.WithCancel(context.Background())

	var seen []Tick
	done := make(chan struct{})
	go func() {
		c.Run(ctx, func(tk Tick) {
			seen = append(seen, tk)
			if len(seen) == 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	for i, tk := range seen[:3] {
		if tk != Tick(i+1) {
			t.Fatalf("expected tick %d, got %d", i+1, tk)
		}
	}
}

func TestEveryLeavesClockAlone(t *testing.T) {
	c := NewClock(200)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	c.Every(ctx, func() {
		calls++
		if calls == 3 {
			cancel()
		}
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if c.Now() != 0 {
		t.Fatalf("expected clock at 0, got %d", c.Now())
	}
}
