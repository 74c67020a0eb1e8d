// Package physics implements the rigid-body collaborator used by sim.Step.
package physics

import (
	"github.com/automoto/rollback-mp/shared/collision"
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/go-gl/mathgl/mgl64"
)

// Rigidbody is a point-mass body moving over a static collision layer.
// It holds no per-body state, so one value serves every entity.
type Rigidbody struct {
	Mass      float64
	Layer     *collision.Layer
	SolidMask sim.LayerMask // layers the body lands on
}

var _ sim.World = Rigidbody{}

// NewRigidbody returns a unit-mass body landing on the ground layer.
func NewRigidbody(layer *collision.Layer) Rigidbody {
	return Rigidbody{Mass: 1, Layer: layer, SolidMask: sim.LayerGround}
}

func (rb Rigidbody) Integrate(s sim.State, force mgl64.Vec3, mode sim.ForceMode, dt float64) sim.State {
	mass := rb.Mass
	if mass <= 0 {
		mass = 1
	}
	switch mode {
	case sim.ForceModeForce:
		s.Velocity = s.Velocity.Add(force.Mul(dt / mass))
	case sim.ForceModeAcceleration:
		s.Velocity = s.Velocity.Add(force.Mul(dt))
	case sim.ForceModeImpulse:
		s.Velocity = s.Velocity.Add(force.Mul(1 / mass))
	case sim.ForceModeVelocityChange:
		s.Velocity = s.Velocity.Add(force)
	}
	return s
}

func (rb Rigidbody) CheckSphere(center mgl64.Vec3, radius float64, mask sim.LayerMask) bool {
	if rb.Layer == nil {
		return false
	}
	return rb.Layer.CheckSphere(center, radius, mask)
}

func (rb Rigidbody) Advance(s sim.State, drag, dt float64) sim.State {
	s.Velocity = gamemath.ApplyDrag(s.Velocity, drag, dt)

	from := s.Position
	to := from.Add(s.Velocity.Mul(dt))
	if rb.Layer != nil && s.Velocity.Y() <= 0 {
		if top, ok := rb.Layer.SupportBelow(to.X(), to.Z(), from.Y(), to.Y(), rb.SolidMask); ok {
			to[1] = top
			s.Velocity[1] = 0
		}
	}
	s.Position = to
	return s
}
