package netcomponents

import (
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// NetBodyData is the replicated view of a simulated body. Observers only ever
// interpolate it; the owning client predicts its own body instead.
type NetBodyData struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Velocity mgl64.Vec3
	Grounded bool
	Tick     uint64 // server tick that produced this state
}

var NetBody = donburi.NewComponentType[NetBodyData]()

// LerpNetBody interpolates between two body states
func LerpNetBody(from, to NetBodyData, t float64) *NetBodyData {
	return &NetBodyData{
		Position: from.Position.Add(to.Position.Sub(from.Position).Mul(t)),
		Rotation: gamemath.Slerp(from.Rotation, to.Rotation, t),
		Velocity: from.Velocity.Add(to.Velocity.Sub(from.Velocity).Mul(t)),
		Grounded: to.Grounded,
		Tick:     to.Tick,
	}
}

// Heading returns the direction the body faces on the ground plane.
func (b NetBodyData) Heading() mgl64.Vec3 {
	return b.Rotation.Rotate(mgl64.Vec3{0, 0, 1})
}
