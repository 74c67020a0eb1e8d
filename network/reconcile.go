package network

import (
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

type ReconcileState int

const (
	Predicting ReconcileState = iota
	Reconciling
	Desynced
)

func (s ReconcileState) String() string {
	switch s {
	case Predicting:
		return "predicting"
	case Reconciling:
		return "reconciling"
	case Desynced:
		return "desynced"
	}
	return "unknown"
}

type OutcomeKind int

const (
	OutcomeIgnored   OutcomeKind = iota // stale, duplicate, or received while desynced
	OutcomeConfirmed                    // prediction within tolerance
	OutcomeCorrected                    // snapped and replayed
	OutcomeDesynced                     // history no longer covers the result
)

// Outcome describes what applying one authoritative result did.
type Outcome struct {
	Kind     OutcomeKind
	Tick     tick.Tick
	Delta    sim.Delta // prediction minus authority at Tick
	Replayed int       // ticks re-simulated after Tick
	State    sim.State // corrected state at the newest local tick
}

// StepFunc re-simulates one tick. It must be the same step used to predict.
type StepFunc func(s sim.State, in sim.Input) sim.State

type ReconcileStats struct {
	Results     int
	Ignored     int
	Confirmed   int
	Corrections int
	Replayed    int
	Desyncs     int
	Resyncs     int
}

// Reconciler compares authoritative results with buffered predictions and
// rewrites history when they disagree. It is owned by the predicting loop and
// is not safe for concurrent use.
type Reconciler struct {
	history *HistoryBuffer
	step    StepFunc
	tol     sim.Tolerance

	state   ReconcileState
	lastAck tick.Tick
	acked   bool
	stats   ReconcileStats
}

func NewReconciler(history *HistoryBuffer, step StepFunc, tol sim.Tolerance) *Reconciler {
	return &Reconciler{history: history, step: step, tol: tol}
}

func (r *Reconciler) State() ReconcileState { return r.state }

func (r *Reconciler) Stats() ReconcileStats { return r.stats }

// LastAck returns the newest authoritative tick applied.
func (r *Reconciler) LastAck() (tick.Tick, bool) { return r.lastAck, r.acked }

// Apply reconciles res against history. current is the newest predicted tick.
func (r *Reconciler) Apply(res messages.AuthoritativeResult, current tick.Tick) Outcome {
	r.stats.Results++

	if r.state == Desynced || (r.acked && res.Tick <= r.lastAck) {
		r.stats.Ignored++
		return Outcome{Kind: OutcomeIgnored, Tick: res.Tick}
	}

	entry, ok := r.history.Get(res.Tick)
	if !ok || res.Tick > current {
		return r.desync(res.Tick)
	}

	auth := res.State()
	delta := sim.Diff(entry.State, auth)
	r.lastAck, r.acked = res.Tick, true

	if delta.Within(r.tol) {
		r.stats.Confirmed++
		return Outcome{Kind: OutcomeConfirmed, Tick: res.Tick, Delta: delta}
	}

	// Replay needs every later input; check before touching anything.
	if !r.history.Contiguous(res.Tick+1, current) {
		return r.desync(res.Tick)
	}

	r.state = Reconciling
	r.history.overwrite(res.Tick, auth)
	s := auth
	for t := res.Tick + 1; t <= current; t++ {
		e, _ := r.history.Get(t)
		s = r.step(s, e.Input)
		r.history.overwrite(t, s)
	}
	replayed := int(current - res.Tick)
	r.state = Predicting

	r.stats.Corrections++
	r.stats.Replayed += replayed
	return Outcome{Kind: OutcomeCorrected, Tick: res.Tick, Delta: delta, Replayed: replayed, State: s}
}

// Resync discards history and restarts prediction from an authoritative
// snapshot. It returns false for a snapshot older than the newest result
// already applied while still predicting.
func (r *Reconciler) Resync(snap messages.Resync) bool {
	if r.state != Desynced && r.acked && snap.Tick <= r.lastAck {
		return false
	}
	r.history.Reset()
	r.history.Record(snap.Tick, sim.Input{Tick: snap.Tick}, snap.State)
	r.lastAck, r.acked = snap.Tick, true
	r.state = Predicting
	r.stats.Resyncs++
	return true
}

func (r *Reconciler) desync(t tick.Tick) Outcome {
	r.state = Desynced
	r.stats.Desyncs++
	return Outcome{Kind: OutcomeDesynced, Tick: t}
}
