package sim

import (
	"math"

	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
)

// Outcome reports edge events produced by a single Step. It is derived data;
// the State alone is enough to continue simulating.
type Outcome struct {
	Jumped     bool
	Landed     bool
	LeftGround bool
	Respawned  bool // fell below the kill plane
	Reset      bool // non-finite state replaced by spawn
}

var forwardAxis = mgl64.Vec3{0, 0, 1}

// Step advances s by one tick of dt seconds under in. It is a pure function of
// its arguments: ground contact is recomputed from position every call.
func Step(w World, p Params, s State, in Input, dt float64) (State, Outcome) {
	var out Outcome
	wasGrounded := s.Grounded
	moveX, moveY := axis(in.MoveX), axis(in.MoveY)

	right := gamemath.GroundProject(sanitize(in.ViewRight))
	forward := gamemath.GroundProject(sanitize(in.ViewForward))
	if dir := right.Mul(moveX).Add(forward.Mul(moveY)); dir != (mgl64.Vec3{}) {
		s = w.Integrate(s, dir.Mul(p.MoveForce), p.MoveMode, dt)
	}

	grounded := w.CheckSphere(s.Position, p.GroundProbeRadius, p.GroundMask)
	if in.Jump && grounded {
		s = w.Integrate(s, gamemath.Up.Mul(p.JumpForce), ForceModeImpulse, dt)
		out.Jumped = true
	}

	gravity := p.Gravity
	if !grounded && s.Velocity.Y() <= 0 && p.FallGravityScale > 0 {
		gravity *= p.FallGravityScale
	}
	s = w.Integrate(s, gamemath.Up.Mul(gravity), ForceModeAcceleration, dt)
	s.Velocity = gamemath.ClampHorizontal(s.Velocity, p.MaxSpeed)

	s = turn(p, s, moveX*moveX+moveY*moveY, dt)

	drag := p.AirDrag
	if grounded {
		drag = p.GroundDrag
	}
	s = w.Advance(s, drag, dt)
	s.Grounded = w.CheckSphere(s.Position, p.GroundProbeRadius, p.GroundMask)

	if !finite(s) {
		return p.Spawn, Outcome{Reset: true}
	}
	if s.Position.Y() < p.KillPlaneY {
		return p.Spawn, Outcome{Respawned: true}
	}

	out.Landed = !wasGrounded && s.Grounded
	out.LeftGround = wasGrounded && !s.Grounded
	return s, out
}

// turn yaws the body toward its horizontal velocity, never faster than
// TurnRate. AngularVelocity records the yaw rate actually applied.
func turn(p Params, s State, moveSq, dt float64) State {
	dir := gamemath.Horizontal(s.Velocity)
	if moveSq <= p.TurnThreshold || dir.Dot(dir) <= p.TurnThreshold {
		s.AngularVelocity = mgl64.Vec3{}
		return s
	}

	next := gamemath.RotateTowards(s.Rotation, gamemath.YawRotation(dir), p.TurnRate*dt)
	angle := gamemath.Angle(s.Rotation, next)
	if s.Rotation.Rotate(forwardAxis).Cross(next.Rotate(forwardAxis)).Y() < 0 {
		angle = -angle
	}
	s.Rotation = next
	s.AngularVelocity = gamemath.Up.Mul(angle / dt)
	return s
}

func axis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return mgl64.Clamp(v, -1, 1)
}

func sanitize(v mgl64.Vec3) mgl64.Vec3 {
	if !gamemath.FiniteVec(v) {
		return mgl64.Vec3{}
	}
	return v
}

func finite(s State) bool {
	return gamemath.FiniteVec(s.Position) &&
		gamemath.FiniteVec(s.Velocity) &&
		gamemath.FiniteVec(s.AngularVelocity) &&
		gamemath.FiniteQuat(s.Rotation)
}
