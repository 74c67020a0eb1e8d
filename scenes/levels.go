package scenes

import (
	"sync"

	"github.com/automoto/rollback-mp/assets"
	"github.com/automoto/rollback-mp/shared/collision"
	"github.com/automoto/rollback-mp/shared/physics"
	"github.com/automoto/rollback-mp/shared/sim"
)

var (
	levelMu    sync.Mutex
	levelCache = map[string]sim.World{}
)

// EmbeddedLevel resolves a level name against the levels shipped in assets,
// building its collision world once.
func EmbeddedLevel(name string) (sim.World, error) {
	levelMu.Lock()
	defer levelMu.Unlock()

	if w, ok := levelCache[name]; ok {
		return w, nil
	}
	lvl, err := assets.LoadLevel(name)
	if err != nil {
		return nil, err
	}
	w := physics.NewRigidbody(collision.FromLevel(lvl))
	levelCache[name] = w
	return w, nil
}
