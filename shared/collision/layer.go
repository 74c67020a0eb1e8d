// Package collision is the static collision layer the movement step queries.
// Boxes are indexed in a resolv grid over the XZ plane; the vertical extent is
// checked in the narrow phase. The layer is immutable after construction and
// safe for concurrent queries.
package collision

import (
	"math"

	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/tags"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"
)

// GridScale converts world units to resolv grid units.
const GridScale = 16

// Box is an axis-aligned static collider.
type Box struct {
	Min, Max mgl64.Vec3
	Layer    sim.LayerMask
}

// Layer indexes static boxes for sphere and support queries.
type Layer struct {
	space *resolv.Space
	boxes []Box
}

// NewLayer builds a layer spanning width x depth world units with cellSize
// world units per broadphase cell.
func NewLayer(width, depth, cellSize float64, boxes []Box) *Layer {
	cell := int(math.Max(1, cellSize*GridScale))
	space := resolv.NewSpace(
		int(math.Ceil(width*GridScale)),
		int(math.Ceil(depth*GridScale)),
		cell, cell,
	)

	l := &Layer{space: space, boxes: make([]Box, 0, len(boxes))}
	for _, b := range boxes {
		idx := len(l.boxes)
		l.boxes = append(l.boxes, b)

		w := (b.Max.X() - b.Min.X()) * GridScale
		d := (b.Max.Z() - b.Min.Z()) * GridScale
		obj := resolv.NewObject(b.Min.X()*GridScale, b.Min.Z()*GridScale, w, d, tagsFor(b.Layer)...)
		obj.SetShape(resolv.NewRectangle(0, 0, w, d))
		obj.Data = idx
		space.Add(obj)
	}
	return l
}

// Boxes returns the colliders in insertion order.
func (l *Layer) Boxes() []Box {
	return l.boxes
}

// CheckSphere reports whether a sphere touches any box on a masked layer.
func (l *Layer) CheckSphere(center mgl64.Vec3, radius float64, mask sim.LayerMask) bool {
	found := false
	l.candidates(center.X(), center.Z(), radius, mask, func(b Box) bool {
		if sphereTouchesBox(center, radius, b) {
			found = true
			return false
		}
		return true
	})
	return found
}

// SupportBelow returns the highest box top at (x, z) lying within [toY, fromY].
// The movement integrator uses it to land a falling body.
func (l *Layer) SupportBelow(x, z, fromY, toY float64, mask sim.LayerMask) (float64, bool) {
	const skin = 1e-9
	best, ok := math.Inf(-1), false
	l.candidates(x, z, 0, mask, func(b Box) bool {
		if x < b.Min.X() || x > b.Max.X() || z < b.Min.Z() || z > b.Max.Z() {
			return true
		}
		top := b.Max.Y()
		if top <= fromY+skin && top >= toY && top > best {
			best, ok = top, true
		}
		return true
	})
	return best, ok
}

// candidates visits each masked box whose broadphase cells overlap the square
// of half-size r around (x, z). Visiting stops when fn returns false.
func (l *Layer) candidates(x, z, r float64, mask sim.LayerMask, fn func(Box) bool) {
	minCX, minCZ := l.space.WorldToSpace((x-r)*GridScale, (z-r)*GridScale)
	maxCX, maxCZ := l.space.WorldToSpace((x+r)*GridScale, (z+r)*GridScale)
	minCX, maxCX = max(minCX, 0), min(maxCX, l.space.Width()-1)
	minCZ, maxCZ = max(minCZ, 0), min(maxCZ, l.space.Height()-1)

	var seen map[int]bool
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			cell := l.space.Cell(cx, cz)
			if cell == nil {
				continue
			}
			for _, obj := range cell.Objects {
				idx, ok := obj.Data.(int)
				if !ok || !onLayer(obj, mask) {
					continue
				}
				if seen == nil {
					seen = make(map[int]bool)
				}
				if seen[idx] {
					continue
				}
				seen[idx] = true
				if !fn(l.boxes[idx]) {
					return
				}
			}
		}
	}
}

func onLayer(obj *resolv.Object, mask sim.LayerMask) bool {
	for _, tag := range tagsFor(mask) {
		if obj.HasTags(tag) {
			return true
		}
	}
	return false
}

func sphereTouchesBox(c mgl64.Vec3, r float64, b Box) bool {
	var d2 float64
	for i := 0; i < 3; i++ {
		v := c[i]
		if v < b.Min[i] {
			d2 += (b.Min[i] - v) * (b.Min[i] - v)
		} else if v > b.Max[i] {
			d2 += (v - b.Max[i]) * (v - b.Max[i])
		}
	}
	return d2 <= r*r
}

func tagsFor(mask sim.LayerMask) []string {
	var out []string
	if mask&sim.LayerGround != 0 {
		out = append(out, tags.ResolvGround)
	}
	if mask&sim.LayerProps != 0 {
		out = append(out, tags.ResolvProps)
	}
	return out
}
