package systems

import (
	"testing"

	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/go-gl/mathgl/mgl64"
)

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestPresenterStepEvents(t *testing.T) {
	p := NewPresenter(cfg.PresentConfig{SmoothCorrection: 1, SmoothDuration: 0.1})
	s := sim.SpawnState(mgl64.Vec3{1, 2, 3})

	p.Step(1, s, sim.Outcome{Jumped: true})
	p.Step(2, s, sim.Outcome{})
	p.Step(3, s, sim.Outcome{Landed: true})
	p.Step(4, s, sim.Outcome{Respawned: true})

	got := kinds(p.Events())
	want := []EventKind{EventJump, EventLand, EventRespawn}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if len(p.Events()) != 0 {
		t.Fatal("expected events cleared after read")
	}
	if p.View().Position != s.Position {
		t.Fatalf("expected view at %v, got %v", s.Position, p.View().Position)
	}
}

func TestPresenterSmoothsSmallCorrection(t *testing.T) {
	p := NewPresenter(cfg.PresentConfig{SmoothCorrection: 1, SmoothDuration: 0.1})
	before := sim.SpawnState(mgl64.Vec3{0, 0, 0})
	after := sim.SpawnState(mgl64.Vec3{0.5, 0, 0})

	p.Correct(10, before, after)
	events := p.Events()
	if len(events) != 1 || events[0].Kind != EventCorrection || events[0].Visible() {
		t.Fatalf("expected one invisible correction event, got %+v", events)
	}

	v := p.View()
	if !v.Correcting || !v.Position.ApproxEqual(before.Position) {
		t.Fatalf("expected view to start at the old position, got %+v", v)
	}

	v = p.Advance(0.05)
	if !v.Correcting {
		t.Fatal("expected smoothing still in progress")
	}
	if v.Position.X() <= 0 || v.Position.X() >= 0.5 {
		t.Fatalf("expected view between old and new position, got %v", v.Position)
	}

	v = p.Advance(0.1)
	if v.Correcting || v.Position != after.Position {
		t.Fatalf("expected smoothing finished at %v, got %+v", after.Position, v)
	}
}

func TestPresenterSnapsLargeCorrection(t *testing.T) {
	p := NewPresenter(cfg.PresentConfig{SmoothCorrection: 1, SmoothDuration: 0.1})
	before := sim.SpawnState(mgl64.Vec3{0, 0, 0})
	after := sim.SpawnState(mgl64.Vec3{3, 0, 0})

	p.Correct(10, before, after)
	events := p.Events()
	if len(events) != 1 || events[0].Kind != EventSnap || !events[0].Visible() {
		t.Fatalf("expected one visible snap, got %+v", events)
	}
	if events[0].Magnitude != 3 {
		t.Fatalf("expected magnitude 3, got %f", events[0].Magnitude)
	}
	if v := p.View(); v.Correcting || v.Position != after.Position {
		t.Fatalf("expected view snapped to %v, got %+v", after.Position, v)
	}
}

func TestPresenterResyncClearsSmoothing(t *testing.T) {
	p := NewPresenter(cfg.PresentConfig{SmoothCorrection: 1, SmoothDuration: 0.1})
	a := sim.SpawnState(mgl64.Vec3{0, 0, 0})
	b := sim.SpawnState(mgl64.Vec3{0.5, 0, 0})
	c := sim.SpawnState(mgl64.Vec3{10, 0, 0})

	p.Correct(1, a, b)
	p.Resynced(2, b, c)

	events := p.Events()
	last := events[len(events)-1]
	if last.Kind != EventResync || !last.Visible() {
		t.Fatalf("expected visible resync, got %+v", last)
	}
	if v := p.View(); v.Correcting || v.Position != c.Position {
		t.Fatalf("expected view at resync state, got %+v", v)
	}
}

func TestPresenterZeroCorrectionIsSilent(t *testing.T) {
	p := NewPresenter(cfg.Present)
	s := sim.SpawnState(mgl64.Vec3{4, 0, 4})
	p.Correct(1, s, s)
	if len(p.Events()) != 0 {
		t.Fatal("expected no event for an identical correction")
	}
}
