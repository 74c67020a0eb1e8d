package collision

import (
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultCellSize is the broadphase cell edge in world units.
const DefaultCellSize = 2.0

// FromLevel builds the static layer for a parsed level.
func FromLevel(lvl *leveldata.Level) *Layer {
	boxes := make([]Box, 0, len(lvl.Platforms))
	for _, p := range lvl.Platforms {
		layer := sim.LayerGround
		if p.Prop {
			layer = sim.LayerProps
		}
		boxes = append(boxes, Box{
			Min:   mgl64.Vec3{p.X, p.Bottom, p.Z},
			Max:   mgl64.Vec3{p.X + p.W, p.Top, p.Z + p.D},
			Layer: layer,
		})
	}
	return NewLayer(lvl.Width, lvl.Depth, DefaultCellSize, boxes)
}

// SpawnState returns the resting state at the level's i-th spawn point.
func SpawnState(lvl *leveldata.Level, i int) sim.State {
	sp := lvl.Spawn(i)
	return sim.SpawnState(mgl64.Vec3{sp.X, sp.Y, sp.Z})
}
