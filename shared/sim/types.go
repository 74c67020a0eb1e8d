// Package sim holds the deterministic movement step shared by the predicting
// client and the authoritative server. Both sides must call Step with the same
// Params, World and dt; nothing else is allowed to integrate a body.
package sim

import (
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

// LayerMask selects collision layers for proximity queries.
type LayerMask uint32

const (
	LayerGround LayerMask = 1 << iota
	LayerProps
)

// LayerAll matches every layer.
const LayerAll LayerMask = ^LayerMask(0)

// ForceMode selects how a force changes velocity.
type ForceMode int

const (
	ForceModeForce          ForceMode = iota // mass-scaled, per second
	ForceModeAcceleration                    // per second, ignores mass
	ForceModeImpulse                         // mass-scaled, instantaneous
	ForceModeVelocityChange                  // instantaneous, ignores mass
)

// State is the complete physically relevant state of one body. It is a plain
// value: copies never alias.
type State struct {
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Grounded        bool
}

// SpawnState returns a resting state at pos facing +Z.
func SpawnState(pos mgl64.Vec3) State {
	return State{Position: pos, Rotation: mgl64.QuatIdent()}
}

// Input is the control intent for one tick. ViewRight and ViewForward are the
// camera basis projected onto the ground plane.
type Input struct {
	Tick        tick.Tick
	MoveX       float64
	MoveY       float64
	ViewRight   mgl64.Vec3
	ViewForward mgl64.Vec3
	Jump        bool
}

// Neutral is the zero-intent input substituted for a missing tick. It keeps the
// last known view basis and never jumps.
func Neutral(t tick.Tick, right, forward mgl64.Vec3) Input {
	return Input{Tick: t, ViewRight: right, ViewForward: forward}
}

// DefaultView is the basis of a camera looking down +Z.
func DefaultView() (right, forward mgl64.Vec3) {
	return mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 0, 1}
}

// World is the physics collaborator. Implementations must be deterministic
// and must not retain state between calls.
type World interface {
	Integrate(s State, force mgl64.Vec3, mode ForceMode, dt float64) State
	CheckSphere(center mgl64.Vec3, radius float64, mask LayerMask) bool
	// Advance applies drag, moves the body by its velocity and resolves
	// contact with the static layer.
	Advance(s State, drag, dt float64) State
}
