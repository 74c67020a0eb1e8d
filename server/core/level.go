package core

import (
	"fmt"
	"io/fs"
	"log"

	"github.com/automoto/rollback-mp/shared/collision"
	"github.com/automoto/rollback-mp/shared/leveldata"
	"github.com/automoto/rollback-mp/shared/physics"
	"github.com/automoto/rollback-mp/shared/sim"
)

// ServerLevel holds the static collision layer and spawn data for a level.
type ServerLevel struct {
	Name  string
	Data  *leveldata.Level
	Layer *collision.Layer
	World physics.Rigidbody
}

// NewServerLevel builds the collision layer from parsed level data.
func NewServerLevel(name string, data *leveldata.Level) *ServerLevel {
	layer := collision.FromLevel(data)

	log.Printf("[server] loaded level %s: %d platforms, %d spawn points, %.0fx%.0f",
		name, len(data.Platforms), len(data.Spawns), data.Width, data.Depth)

	return &ServerLevel{
		Name:  name,
		Data:  data,
		Layer: layer,
		World: physics.NewRigidbody(layer),
	}
}

// Spawn returns the resting state at spawn point i, wrapping around.
func (l *ServerLevel) Spawn(i int) sim.State {
	return collision.SpawnState(l.Data, i)
}

// LoadAllServerLevels loads every .tmx level under dir, returning them keyed
// by stem name plus a sorted name list.
func LoadAllServerLevels(fsys fs.FS, dir string) (map[string]*ServerLevel, []string, error) {
	data, names, err := leveldata.LoadAllLevels(fsys, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("load all levels: %w", err)
	}

	levels := make(map[string]*ServerLevel, len(names))
	for _, name := range names {
		levels[name] = NewServerLevel(name, data[name])
	}
	return levels, names, nil
}
