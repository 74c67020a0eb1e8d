package components

import (
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/yohamta/donburi"
)

// NetInterpData stores interpolation state for a remote body between two
// replicated snapshots.
type NetInterpData struct {
	Prev, Target netcomponents.NetBodyData
	T            float64
	Initialized  bool
}

var NetInterp = donburi.NewComponentType[NetInterpData]()
