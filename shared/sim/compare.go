package sim

import "github.com/automoto/rollback-mp/shared/gamemath"

// Tolerance bounds the difference between a predicted and an authoritative
// state that still counts as agreement.
type Tolerance struct {
	Position float64 // units
	Rotation float64 // radians
	Velocity float64 // units per second
}

// Delta is the per-quantity difference between two states.
type Delta struct {
	Position float64
	Rotation float64
	Velocity float64
}

// Diff measures how far b is from a.
func Diff(a, b State) Delta {
	return Delta{
		Position: a.Position.Sub(b.Position).Len(),
		Rotation: gamemath.Angle(a.Rotation, b.Rotation),
		Velocity: a.Velocity.Sub(b.Velocity).Len(),
	}
}

// Within reports whether every component of d is inside tol.
func (d Delta) Within(tol Tolerance) bool {
	return d.Position <= tol.Position && d.Rotation <= tol.Rotation && d.Velocity <= tol.Velocity
}
