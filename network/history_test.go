package network

import (
	"testing"

	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

func stateAt(t tick.Tick) sim.State {
	return sim.SpawnState(mgl64.Vec3{float64(t), 0, 0})
}

func TestHistoryGetChecksSlotOwner(t *testing.T) {
	h := NewHistoryBuffer(8)
	h.Record(3, sim.Input{Tick: 3}, stateAt(3))

	if e, ok := h.Get(3); !ok || e.State != stateAt(3) {
		t.Fatalf("expected entry for tick 3, got %+v %v", e, ok)
	}
	if _, ok := h.Get(11); ok {
		t.Fatalf("expected tick 11 (same slot, never recorded) to be absent")
	}

	h.Record(11, sim.Input{Tick: 11}, stateAt(11))
	if _, ok := h.Get(3); ok {
		t.Fatalf("expected tick 3 to be evicted by tick 11")
	}
	if _, ok := h.Get(0); ok {
		t.Fatalf("expected an empty slot to report absent")
	}
}

func TestEntriesFromAfterWrap(t *testing.T) {
	h := NewHistoryBuffer(64)
	for i := tick.Tick(1); i <= 150; i++ {
		h.Record(i, sim.Input{Tick: i}, stateAt(i))
	}

	got := h.EntriesFrom(0)
	if len(got) != 64 || got[0].Tick != 87 || got[63].Tick != 150 {
		t.Fatalf("expected ticks 87..150, got %d entries from %d", len(got), got[0].Tick)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Tick != got[i-1].Tick+1 {
			t.Fatalf("expected increasing ticks, got %d after %d", got[i].Tick, got[i-1].Tick)
		}
	}

	if n := len(h.EntriesFrom(140)); n != 11 {
		t.Fatalf("expected 11 entries from 140, got %d", n)
	}
	if h.EntriesFrom(151) != nil {
		t.Fatalf("expected nothing beyond the newest tick")
	}
}

func TestContiguous(t *testing.T) {
	h := NewHistoryBuffer(16)
	for i := tick.Tick(1); i <= 10; i++ {
		if i == 6 {
			continue
		}
		h.Record(i, sim.Input{Tick: i}, stateAt(i))
	}

	if !h.Contiguous(1, 5) {
		t.Fatalf("expected 1..5 to be contiguous")
	}
	if h.Contiguous(4, 8) {
		t.Fatalf("expected the missing tick 6 to break contiguity")
	}
	if !h.Contiguous(9, 8) {
		t.Fatalf("expected an empty range to be contiguous")
	}
	if h.Contiguous(1, 40) {
		t.Fatalf("expected a range longer than capacity to be a gap")
	}
}

func TestReset(t *testing.T) {
	h := NewHistoryBuffer(4)
	h.Record(2, sim.Input{Tick: 2}, stateAt(2))
	h.Reset()

	if _, ok := h.Get(2); ok {
		t.Fatalf("expected reset to drop entries")
	}
	if _, ok := h.Newest(); ok {
		t.Fatalf("expected no newest tick after reset")
	}
	if h.Cap() != 4 {
		t.Fatalf("expected capacity to survive reset")
	}
}
