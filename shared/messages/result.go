package messages

import (
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

// AuthoritativeResult is the server's canonical state of one controlled body
// after simulating Tick. Exactly one is published per tick per body.
type AuthoritativeResult struct {
	Tick            tick.Tick
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Grounded        bool
}

// ResultFrom captures s as the result for t.
func ResultFrom(t tick.Tick, s sim.State) AuthoritativeResult {
	return AuthoritativeResult{
		Tick:            t,
		Position:        s.Position,
		Rotation:        s.Rotation,
		Velocity:        s.Velocity,
		AngularVelocity: s.AngularVelocity,
		Grounded:        s.Grounded,
	}
}

// State converts the result back into a simulation state.
func (r AuthoritativeResult) State() sim.State {
	return sim.State{
		Position:        r.Position,
		Rotation:        r.Rotation,
		Velocity:        r.Velocity,
		AngularVelocity: r.AngularVelocity,
		Grounded:        r.Grounded,
	}
}

// ResyncRequest is sent by a client whose history no longer covers the
// results it receives.
type ResyncRequest struct {
	Tick tick.Tick // newest local tick when the desync was detected
}

// Resync is pushed unconditionally by the server. The client discards its
// history and resumes prediction from State at Tick.
type Resync struct {
	Tick  tick.Tick
	State sim.State
}
