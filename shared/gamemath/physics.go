package gamemath

import "github.com/go-gl/mathgl/mgl64"

// Up is the world up axis.
var Up = mgl64.Vec3{0, 1, 0}

// ApplyDrag scales velocity by the linear drag factor for one step,
// clamped so drag never reverses direction.
func ApplyDrag(v mgl64.Vec3, drag, dt float64) mgl64.Vec3 {
	if drag <= 0 {
		return v
	}
	k := 1 - drag*dt
	if k < 0 {
		k = 0
	}
	return v.Mul(k)
}

// ClampHorizontal limits the XZ speed of v to max, leaving Y untouched.
func ClampHorizontal(v mgl64.Vec3, max float64) mgl64.Vec3 {
	h := mgl64.Vec3{v.X(), 0, v.Z()}
	if h.Dot(h) <= max*max {
		return v
	}
	h = h.Normalize().Mul(max)
	return mgl64.Vec3{h.X(), v.Y(), h.Z()}
}

// Horizontal drops the Y component.
func Horizontal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// GroundProject flattens v onto the XZ plane and normalizes it.
// A vertical or zero vector projects to zero.
func GroundProject(v mgl64.Vec3) mgl64.Vec3 {
	h := Horizontal(v)
	if h.Dot(h) < 1e-12 {
		return mgl64.Vec3{}
	}
	return h.Normalize()
}
