package sim

import "github.com/go-gl/mathgl/mgl64"

// Params are the movement tunables. They are protocol-relevant only in that
// both sides must use identical values.
type Params struct {
	MoveForce float64
	MoveMode  ForceMode
	JumpForce float64

	Gravity          float64 // signed, along Y
	FallGravityScale float64 // applied while airborne and not rising

	GroundDrag float64
	AirDrag    float64
	MaxSpeed   float64 // horizontal

	TurnRate      float64 // radians per second
	TurnThreshold float64 // squared magnitude gate for move axes and horizontal speed

	GroundProbeRadius float64
	GroundMask        LayerMask

	KillPlaneY float64
	Spawn      State
}

// DefaultParams mirrors the tuning the game ships with.
func DefaultParams() Params {
	return Params{
		MoveForce:         1,
		MoveMode:          ForceModeImpulse,
		JumpForce:         5,
		Gravity:           -9.81,
		FallGravityScale:  1.2,
		GroundDrag:        3.5,
		AirDrag:           0,
		MaxSpeed:          5,
		TurnRate:          mgl64.DegToRad(720),
		TurnThreshold:     0.1,
		GroundProbeRadius: 0.25,
		GroundMask:        LayerGround,
		KillPlaneY:        -5,
		Spawn:             SpawnState(mgl64.Vec3{}),
	}
}

// WithSpawn returns a copy of p respawning at s.
func (p Params) WithSpawn(s State) Params {
	p.Spawn = s
	return p
}
