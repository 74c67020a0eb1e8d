package core

import (
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

// EnqueueResult classifies one received input.
type EnqueueResult int

const (
	InputAccepted  EnqueueResult = iota
	InputStale                   // tick already simulated
	InputDuplicate               // tick already queued
	InputTooFarAhead
)

type AuthorityStats struct {
	Simulated   int
	Substituted int
	Stale       int
	Duplicates  int
	TooFar      int
	Resets      int
	Respawns    int
	Resyncs     int // snapshots handed out, including accepts
}

// Authority owns the canonical state of one controlled body. It consumes
// exactly one input per tick, in tick order, and never re-simulates.
type Authority struct {
	world  sim.World
	params sim.Params
	dt     float64

	state    sim.State
	next     tick.Tick
	queue    map[tick.Tick]sim.Input
	maxAhead tick.Tick

	// last view basis, kept for neutral substitution
	right, forward mgl64.Vec3

	lateStreak int
	stats      AuthorityStats
}

// NewAuthority starts a body at state s, as of tick start. The first input it
// consumes is for start+1.
func NewAuthority(w sim.World, p sim.Params, dt float64, start tick.Tick, s sim.State, maxAhead int) *Authority {
	right, forward := sim.DefaultView()
	if maxAhead <= 0 {
		maxAhead = 1
	}
	return &Authority{
		world:    w,
		params:   p,
		dt:       dt,
		state:    s,
		next:     start + 1,
		queue:    make(map[tick.Tick]sim.Input),
		maxAhead: tick.Tick(maxAhead),
		right:    right,
		forward:  forward,
	}
}

// Enqueue stores in for its tick.
func (a *Authority) Enqueue(in sim.Input) EnqueueResult {
	switch {
	case in.Tick < a.next:
		a.stats.Stale++
		return InputStale
	case in.Tick >= a.next+a.maxAhead:
		a.stats.TooFar++
		return InputTooFarAhead
	}
	if _, ok := a.queue[in.Tick]; ok {
		a.stats.Duplicates++
		return InputDuplicate
	}
	a.queue[in.Tick] = in
	return InputAccepted
}

// EnqueueBatch stores every input of b and tracks whether the newest one
// arrived too late. It returns true once the client has been late for more
// than limit consecutive batches; the caller should push a Resync.
func (a *Authority) EnqueueBatch(b messages.InputBatch, limit int) bool {
	for _, in := range b.Inputs {
		a.Enqueue(in)
	}
	newest, ok := b.Newest()
	if !ok {
		return false
	}
	if newest.Tick < a.next {
		a.lateStreak++
	} else {
		a.lateStreak = 0
	}
	if limit > 0 && a.lateStreak >= limit {
		a.lateStreak = 0
		return true
	}
	return false
}

// Advance simulates the next tick. A missing input is replaced by a neutral
// one that keeps the last view basis, so the loop never waits.
func (a *Authority) Advance() (messages.AuthoritativeResult, sim.Outcome) {
	t := a.next
	in, ok := a.queue[t]
	if ok {
		delete(a.queue, t)
		a.right, a.forward = in.ViewRight, in.ViewForward
	} else {
		in = sim.Neutral(t, a.right, a.forward)
		a.stats.Substituted++
	}

	var out sim.Outcome
	a.state, out = sim.Step(a.world, a.params, a.state, in, a.dt)
	a.next++
	a.stats.Simulated++
	if out.Reset {
		a.stats.Resets++
	}
	if out.Respawned {
		a.stats.Respawns++
	}
	return messages.ResultFrom(t, a.state), out
}

// Snapshot returns the state after the last simulated tick.
func (a *Authority) Snapshot() messages.Resync {
	return messages.Resync{Tick: a.next - 1, State: a.state}
}

// Resync returns the snapshot a client restarts from and forgets every
// queued input. The client discards its history and predicts neutral ticks
// after the snapshot, so inputs queued before it no longer match.
func (a *Authority) Resync() messages.Resync {
	clear(a.queue)
	a.lateStreak = 0
	a.stats.Resyncs++
	return a.Snapshot()
}

func (a *Authority) State() sim.State { return a.state }

// Next returns the tick the next Advance will simulate.
func (a *Authority) Next() tick.Tick { return a.next }

func (a *Authority) Pending() int { return len(a.queue) }

func (a *Authority) Stats() AuthorityStats { return a.stats }
