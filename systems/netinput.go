package systems

import (
	"github.com/automoto/rollback-mp/shared/gamemath"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
)

// Intent is the raw control state for one tick: stick axes, whether jump is
// held, and where the camera looks (any pitch).
type Intent struct {
	MoveX, MoveY  float64
	Jump          bool
	CameraForward mgl64.Vec3
}

// IntentSource produces control intent. It stands in for the input devices
// and camera of a rendered client.
type IntentSource interface {
	Intent(t tick.Tick) Intent
}

// InputSampler turns intent into one sim.Input per tick. It never looks at
// physics state, so sampling the same intents always yields the same inputs.
type InputSampler struct {
	src            IntentSource
	jumpHeld       bool
	right, forward mgl64.Vec3
}

func NewInputSampler(src IntentSource) *InputSampler {
	right, forward := sim.DefaultView()
	return &InputSampler{src: src, right: right, forward: forward}
}

// Sample reads intent for t. Jump is reported only on the tick it is first
// pressed; holding it does not repeat.
func (s *InputSampler) Sample(t tick.Tick) sim.Input {
	intent := s.src.Intent(t)

	// A camera looking straight down has no ground heading; keep the last one.
	if fwd := gamemath.GroundProject(intent.CameraForward); fwd != (mgl64.Vec3{}) {
		s.forward = fwd
		s.right = gamemath.Up.Cross(fwd)
	}

	jump := intent.Jump && !s.jumpHeld
	s.jumpHeld = intent.Jump

	return sim.Input{
		Tick:        t,
		MoveX:       mgl64.Clamp(intent.MoveX, -1, 1),
		MoveY:       mgl64.Clamp(intent.MoveY, -1, 1),
		ViewRight:   s.right,
		ViewForward: s.forward,
		Jump:        jump,
	}
}
