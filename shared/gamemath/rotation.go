package gamemath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// YawRotation returns the rotation that turns +Z to face dir around the up axis.
func YawRotation(dir mgl64.Vec3) mgl64.Quat {
	return mgl64.QuatRotate(math.Atan2(dir.X(), dir.Z()), Up)
}

// Angle returns the smallest rotation angle in radians between a and b.
func Angle(a, b mgl64.Quat) float64 {
	d := math.Abs(a.Normalize().Dot(b.Normalize()))
	if d >= 1 {
		return 0
	}
	return 2 * math.Acos(d)
}

// RotateTowards turns from toward to by at most maxRadians along the shortest arc.
func RotateTowards(from, to mgl64.Quat, maxRadians float64) mgl64.Quat {
	angle := Angle(from, to)
	if angle == 0 || angle <= maxRadians {
		return to.Normalize()
	}
	if from.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return mgl64.QuatSlerp(from, to, maxRadians/angle).Normalize()
}

// Finite reports whether every component is neither NaN nor infinite.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// FiniteVec reports whether v has only finite components.
func FiniteVec(v mgl64.Vec3) bool {
	return Finite(v[0], v[1], v[2])
}

// FiniteQuat reports whether q has only finite components.
func FiniteQuat(q mgl64.Quat) bool {
	return Finite(q.W, q.V[0], q.V[1], q.V[2])
}

// Slerp interpolates along the shortest arc and tolerates zero quaternions,
// which appear in freshly created components.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Len() == 0 || b.Len() == 0 {
		if t < 0.5 {
			return a
		}
		return b
	}
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}
