package network

import (
	"math"
	"testing"

	"github.com/automoto/rollback-mp/shared/collision"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/physics"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

const testDT = 1.0 / 50

var testTolerance = sim.Tolerance{Position: 1e-4, Rotation: 1e-4, Velocity: 1e-4}

type harness struct {
	world  sim.World
	params sim.Params
	hist   *HistoryBuffer
	rec    *Reconciler
	state  sim.State
	now    tick.Tick
}

func newHarness(t *testing.T, world sim.World, params sim.Params) *harness {
	t.Helper()
	h := &harness{world: world, params: params, hist: NewHistoryBuffer(64), state: params.Spawn}
	h.rec = NewReconciler(h.hist, h.step, testTolerance)
	return h
}

func (h *harness) step(s sim.State, in sim.Input) sim.State {
	next, _ := sim.Step(h.world, h.params, s, in, testDT)
	return next
}

func (h *harness) predict(in sim.Input) {
	h.now++
	in.Tick = h.now
	h.state = h.step(h.state, in)
	h.hist.Record(h.now, in, h.state)
}

func (h *harness) apply(res messages.AuthoritativeResult) Outcome {
	out := h.rec.Apply(res, h.now)
	if out.Kind == OutcomeCorrected {
		h.state = out.State
	}
	return out
}

func runRight() sim.Input {
	right, forward := sim.DefaultView()
	return sim.Input{MoveX: 1, ViewRight: right, ViewForward: forward}
}

// floatingWorld has no ground and no gravity, so a vertical offset persists.
func floatingWorld() (sim.World, sim.Params) {
	p := sim.DefaultParams()
	p.Gravity = 0
	p.KillPlaneY = -1000
	p.Spawn = sim.SpawnState(mgl64.Vec3{0, 10, 0})
	return physics.Rigidbody{Mass: 1}, p
}

func floorWorld() (sim.World, sim.Params) {
	layer := collision.NewLayer(200, 200, 2, []collision.Box{
		{Min: mgl64.Vec3{0, -1, 0}, Max: mgl64.Vec3{200, 0, 200}, Layer: sim.LayerGround},
	})
	p := sim.DefaultParams().WithSpawn(sim.SpawnState(mgl64.Vec3{100, 0, 100}))
	return physics.NewRigidbody(layer), p
}

func TestCorrectionReplaysToCurrentTick(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 100; i++ {
		h.predict(runRight())
	}
	predictedFinal := h.state

	e40, ok := h.hist.Get(40)
	if !ok {
		t.Fatalf("expected tick 40 to be retained")
	}
	auth := e40.State
	auth.Position[1] -= 0.3

	// Uninterrupted authority: same inputs 41..100 from the corrected state.
	want := auth
	for tk := tick.Tick(41); tk <= 100; tk++ {
		e, _ := h.hist.Get(tk)
		want = h.step(want, e.Input)
	}

	out := h.apply(messages.ResultFrom(40, auth))
	if out.Kind != OutcomeCorrected || out.Replayed != 60 {
		t.Fatalf("expected correction replaying 60 ticks, got %+v", out)
	}
	if math.Abs(out.Delta.Position-0.3) > 1e-9 {
		t.Fatalf("expected 0.3 delta, got %f", out.Delta.Position)
	}
	if !sim.Diff(h.state, want).Within(testTolerance) {
		t.Fatalf("expected replayed state %+v to match authority %+v", h.state, want)
	}
	if dy := predictedFinal.Position.Y() - h.state.Position.Y(); math.Abs(dy-0.3) > 1e-9 {
		t.Fatalf("expected the final state to carry the 0.3 correction, got %f", dy)
	}
	if e, _ := h.hist.Get(100); e.State != h.state {
		t.Fatalf("expected history to hold the replayed state")
	}
	if h.rec.State() != Predicting {
		t.Fatalf("expected to return to predicting, got %s", h.rec.State())
	}
}

func TestReplayEquivalence(t *testing.T) {
	world, params := floorWorld()
	inputs := make([]sim.Input, 80)
	for i := range inputs {
		right, forward := sim.DefaultView()
		inputs[i] = sim.Input{
			MoveX:       math.Sin(float64(i) / 5),
			MoveY:       math.Cos(float64(i) / 9),
			ViewRight:   right,
			ViewForward: forward,
			Jump:        i%25 == 3,
		}
	}

	// Authority sees a shove at tick 30 that the client never predicted.
	authority := params.Spawn
	var authAt30 sim.State
	for i, in := range inputs {
		in.Tick = tick.Tick(i + 1)
		authority, _ = sim.Step(world, params, authority, in, testDT)
		if in.Tick == 30 {
			authority.Velocity = authority.Velocity.Add(mgl64.Vec3{2, 0, -1})
			authAt30 = authority
		}
	}

	h := newHarness(t, world, params)
	for _, in := range inputs {
		h.predict(in)
	}
	out := h.apply(messages.ResultFrom(30, authAt30))
	if out.Kind != OutcomeCorrected {
		t.Fatalf("expected correction, got %+v", out)
	}
	if h.state != authority {
		t.Fatalf("expected bit-identical replay, got %+v want %+v", h.state, authority)
	}
}

func TestDuplicateResultIsIdempotent(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 20; i++ {
		h.predict(runRight())
	}

	e5, _ := h.hist.Get(5)
	auth := e5.State
	auth.Position[0] += 1
	res := messages.ResultFrom(5, auth)

	if out := h.apply(res); out.Kind != OutcomeCorrected {
		t.Fatalf("expected first arrival to correct, got %+v", out)
	}
	before := h.hist.EntriesFrom(0)
	stateBefore := h.state

	if out := h.apply(res); out.Kind != OutcomeIgnored {
		t.Fatalf("expected duplicate to be ignored, got %+v", out)
	}
	after := h.hist.EntriesFrom(0)
	if h.state != stateBefore || len(before) != len(after) {
		t.Fatalf("expected no mutation from duplicate")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("entry %d changed on duplicate", i)
		}
	}
}

func TestOlderResultAfterNewerIsIgnored(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 20; i++ {
		h.predict(runRight())
	}

	e10, _ := h.hist.Get(10)
	e8, _ := h.hist.Get(8)
	if out := h.apply(messages.ResultFrom(10, e10.State)); out.Kind != OutcomeConfirmed {
		t.Fatalf("expected matching result to confirm, got %+v", out)
	}
	if out := h.apply(messages.ResultFrom(8, e8.State)); out.Kind != OutcomeIgnored {
		t.Fatalf("expected reordered older result to be ignored, got %+v", out)
	}
	if ack, _ := h.rec.LastAck(); ack != 10 {
		t.Fatalf("expected last ack 10, got %d", ack)
	}
}

func TestConfirmedResultKeepsPrediction(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 10; i++ {
		h.predict(runRight())
	}
	e4, _ := h.hist.Get(4)
	nudged := e4.State
	nudged.Position[0] += 1e-6

	if out := h.apply(messages.ResultFrom(4, nudged)); out.Kind != OutcomeConfirmed {
		t.Fatalf("expected drift inside tolerance to confirm, got %+v", out)
	}
	if got, _ := h.hist.Get(4); got.State != e4.State {
		t.Fatalf("expected prediction to be kept on confirm")
	}
}

func TestEvictedResultDesyncs(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 150; i++ {
		h.predict(runRight())
	}

	out := h.apply(messages.ResultFrom(80, params.Spawn))
	if out.Kind != OutcomeDesynced || h.rec.State() != Desynced {
		t.Fatalf("expected desync for evicted tick 80, got %+v", out)
	}
	stateBefore := h.state

	e150, _ := h.hist.Get(150)
	if out := h.apply(messages.ResultFrom(150, e150.State)); out.Kind != OutcomeIgnored {
		t.Fatalf("expected results to be ignored while desynced, got %+v", out)
	}
	if h.state != stateBefore {
		t.Fatalf("expected no replay from wrong data")
	}

	snap := messages.Resync{Tick: 160, State: params.Spawn}
	if !h.rec.Resync(snap) {
		t.Fatalf("expected resync to be accepted while desynced")
	}
	if h.rec.State() != Predicting {
		t.Fatalf("expected predicting after resync, got %s", h.rec.State())
	}
	if got := h.hist.EntriesFrom(0); len(got) != 1 || got[0].Tick != 160 {
		t.Fatalf("expected history to restart at the snapshot, got %+v", got)
	}
	if s := h.rec.Stats(); s.Desyncs != 1 || s.Resyncs != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestFutureResultDesyncs(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 5; i++ {
		h.predict(runRight())
	}
	if out := h.apply(messages.ResultFrom(9, params.Spawn)); out.Kind != OutcomeDesynced {
		t.Fatalf("expected a result ahead of the local clock to desync, got %+v", out)
	}
}

func TestGapInReplayRangeDesyncs(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 10; i++ {
		h.predict(runRight())
	}
	// Tick 7 is overwritten by a far-future tick sharing its slot.
	h.hist.Record(7+64, sim.Input{}, params.Spawn)

	e3, _ := h.hist.Get(3)
	auth := e3.State
	auth.Position[0] += 1
	before := h.state

	if out := h.rec.Apply(messages.ResultFrom(3, auth), 10); out.Kind != OutcomeDesynced {
		t.Fatalf("expected gap to desync, got %+v", out)
	}
	if e, _ := h.hist.Get(3); e.State == auth {
		t.Fatalf("expected history untouched when replay is impossible")
	}
	if h.state != before {
		t.Fatalf("expected state untouched")
	}
}

func TestStaleResyncIsRejected(t *testing.T) {
	world, params := floatingWorld()
	h := newHarness(t, world, params)
	for i := 0; i < 10; i++ {
		h.predict(runRight())
	}
	e8, _ := h.hist.Get(8)
	h.apply(messages.ResultFrom(8, e8.State))

	if h.rec.Resync(messages.Resync{Tick: 6, State: params.Spawn}) {
		t.Fatalf("expected resync older than the last ack to be rejected while predicting")
	}
	if _, ok := h.hist.Get(10); !ok {
		t.Fatalf("expected history to survive a rejected resync")
	}
}
