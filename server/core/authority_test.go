package core

import (
	"testing"

	"github.com/automoto/rollback-mp/shared/collision"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/physics"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

const testDT = 1.0 / 60

func testWorld() physics.Rigidbody {
	layer := collision.NewLayer(100, 100, 2, []collision.Box{
		{Min: mgl64.Vec3{0, -1, 0}, Max: mgl64.Vec3{100, 0, 100}, Layer: sim.LayerGround},
	})
	return physics.NewRigidbody(layer)
}

func testAuthority(start tick.Tick) *Authority {
	spawn := sim.SpawnState(mgl64.Vec3{50, 0, 50})
	p := sim.DefaultParams().WithSpawn(spawn)
	return NewAuthority(testWorld(), p, testDT, start, spawn, 16)
}

func input(t tick.Tick, x float64) sim.Input {
	right, forward := sim.DefaultView()
	return sim.Input{Tick: t, MoveX: x, ViewRight: right, ViewForward: forward}
}

func TestAdvanceConsumesInputsInOrder(t *testing.T) {
	a := testAuthority(10)
	for _, tk := range []tick.Tick{13, 11, 12} {
		if got := a.Enqueue(input(tk, 1)); got != InputAccepted {
			t.Fatalf("expected tick %d accepted, got %v", tk, got)
		}
	}

	for want := tick.Tick(11); want <= 13; want++ {
		res, _ := a.Advance()
		if res.Tick != want {
			t.Fatalf("expected result for tick %d, got %d", want, res.Tick)
		}
	}
	if a.Pending() != 0 {
		t.Fatalf("expected empty queue, got %d", a.Pending())
	}
	if a.Stats().Substituted != 0 {
		t.Fatalf("expected no substitutions, got %d", a.Stats().Substituted)
	}
}

func TestMissingInputAdvancesExactlyOneTick(t *testing.T) {
	a := testAuthority(0)
	a.Enqueue(input(1, 1))
	a.Enqueue(input(3, 1))

	var results []messages.AuthoritativeResult
	for i := 0; i < 3; i++ {
		res, _ := a.Advance()
		results = append(results, res)
	}
	for i, res := range results {
		if res.Tick != tick.Tick(i+1) {
			t.Fatalf("expected result %d for tick %d, got %d", i, i+1, res.Tick)
		}
	}
	if a.Next() != 4 {
		t.Fatalf("expected next tick 4, got %d", a.Next())
	}
	if a.Stats().Substituted != 1 {
		t.Fatalf("expected one substitution, got %d", a.Stats().Substituted)
	}
}

func TestNeutralSubstitutionKeepsViewAndDoesNotMove(t *testing.T) {
	a := testAuthority(0)
	in := input(1, 0)
	in.ViewRight = mgl64.Vec3{0, 0, 1}
	in.ViewForward = mgl64.Vec3{-1, 0, 0}
	a.Enqueue(in)
	a.Advance()

	if a.right != in.ViewRight || a.forward != in.ViewForward {
		t.Fatalf("expected view basis retained, got %v %v", a.right, a.forward)
	}

	before := a.State()
	res, out := a.Advance()
	if out.Jumped {
		t.Fatal("expected neutral input never to jump")
	}
	if res.Position.Sub(before.Position).Len() > 1e-9 {
		t.Fatalf("expected resting body to stay put, moved %v", res.Position.Sub(before.Position))
	}
}

func TestStaleAndDuplicateInputsDropped(t *testing.T) {
	a := testAuthority(0)
	a.Enqueue(input(1, 1))
	a.Advance()

	if got := a.Enqueue(input(1, -1)); got != InputStale {
		t.Fatalf("expected stale, got %v", got)
	}
	if got := a.Enqueue(input(2, 1)); got != InputAccepted {
		t.Fatalf("expected accepted, got %v", got)
	}
	if got := a.Enqueue(input(2, -1)); got != InputDuplicate {
		t.Fatalf("expected duplicate, got %v", got)
	}
	if got := a.Enqueue(input(100, 1)); got != InputTooFarAhead {
		t.Fatalf("expected too far ahead, got %v", got)
	}

	stats := a.Stats()
	if stats.Stale != 1 || stats.Duplicates != 1 || stats.TooFar != 1 {
		t.Fatalf("expected one of each drop, got %+v", stats)
	}
}

func TestAuthorityMatchesDirectStepping(t *testing.T) {
	a := testAuthority(0)
	w := testWorld()
	p := sim.DefaultParams().WithSpawn(a.State())
	s := a.State()

	for tk := tick.Tick(1); tk <= 90; tk++ {
		in := input(tk, 1)
		in.Jump = tk%30 == 0
		a.Enqueue(in)
		res, _ := a.Advance()
		s, _ = sim.Step(w, p, s, in, testDT)
		if res.State() != s {
			t.Fatalf("tick %d: expected authority state %+v, got %+v", tk, s, res.State())
		}
	}
}

func TestLateStreakRequestsResync(t *testing.T) {
	a := testAuthority(0)
	for i := 0; i < 10; i++ {
		a.Advance()
	}

	late := messages.InputBatch{Inputs: []sim.Input{input(2, 1), input(3, 1)}}
	for i := 0; i < 2; i++ {
		if a.EnqueueBatch(late, 3) {
			t.Fatalf("expected no resync after %d late batches", i+1)
		}
	}
	if !a.EnqueueBatch(late, 3) {
		t.Fatal("expected resync after 3 late batches")
	}

	onTime := messages.InputBatch{Inputs: []sim.Input{input(11, 1)}}
	a.EnqueueBatch(late, 3)
	a.EnqueueBatch(onTime, 3)
	if a.lateStreak != 0 {
		t.Fatalf("expected streak reset by an on-time batch, got %d", a.lateStreak)
	}
}

func TestSnapshotIsLastSimulatedTick(t *testing.T) {
	a := testAuthority(5)
	snap := a.Snapshot()
	if snap.Tick != 5 {
		t.Fatalf("expected snapshot tick 5 before stepping, got %d", snap.Tick)
	}
	a.Advance()
	snap = a.Snapshot()
	if snap.Tick != 6 || snap.State != a.State() {
		t.Fatalf("expected snapshot of tick 6, got %+v", snap)
	}
}

func TestResyncForgetsQueuedInputs(t *testing.T) {
	a := testAuthority(10)
	for tk := tick.Tick(11); tk <= 14; tk++ {
		a.Enqueue(input(tk, 1))
	}
	a.lateStreak = 5

	snap := a.Resync()
	if snap.Tick != 10 {
		t.Fatalf("expected snapshot at tick 10, got %d", snap.Tick)
	}
	if a.Pending() != 0 || a.lateStreak != 0 {
		t.Fatalf("expected queue and late streak cleared, got %d pending, streak %d", a.Pending(), a.lateStreak)
	}

	if res, _ := a.Advance(); res.Tick != 11 {
		t.Fatalf("expected tick 11, got %d", res.Tick)
	}
	if a.Stats().Substituted != 1 {
		t.Fatalf("expected one substitution, got %d", a.Stats().Substituted)
	}
	if got := a.Enqueue(input(12, 1)); got != InputAccepted {
		t.Fatalf("expected tick 12 accepted after resync, got %v", got)
	}
}
