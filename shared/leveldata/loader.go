package leveldata

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lafriks/go-tiled"
)

// ErrNoGround is returned for a level without any walkable platform.
var ErrNoGround = errors.New("level has no ground")

const defaultThickness = 1.0

// LoadLevel parses a TMX file. It takes an fs.FS so callers can pass the
// embedded assets or os.DirFS.
func LoadLevel(fsys fs.FS, tmxPath string) (*Level, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	lvl := &Level{
		Name:  strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width: float64(levelMap.Width*levelMap.TileWidth) / PixelsPerUnit,
		Depth: float64(levelMap.Height*levelMap.TileHeight) / PixelsPerUnit,
	}

	for _, og := range levelMap.ObjectGroups {
		switch og.Name {
		case "Ground", "Props":
			for _, o := range og.Objects {
				lvl.Platforms = append(lvl.Platforms, platformFrom(o, og.Name == "Props"))
			}
		case "PlayerSpawn":
			for _, o := range og.Objects {
				lvl.Spawns = append(lvl.Spawns, SpawnPoint{
					X:     o.X / PixelsPerUnit,
					Y:     o.Properties.GetFloat("y"),
					Z:     o.Y / PixelsPerUnit,
					Index: o.Properties.GetInt("spawnIndex"),
				})
			}
		}
	}

	hasGround := false
	for _, p := range lvl.Platforms {
		hasGround = hasGround || !p.Prop
	}
	if !hasGround {
		return nil, fmt.Errorf("%s: %w", tmxPath, ErrNoGround)
	}

	sort.SliceStable(lvl.Spawns, func(i, j int) bool {
		return lvl.Spawns[i].Index < lvl.Spawns[j].Index
	})
	if len(lvl.Spawns) == 0 {
		p := lvl.Platforms[0]
		lvl.Spawns = []SpawnPoint{{X: p.X + p.W/2, Y: p.Top, Z: p.Z + p.D/2}}
	}

	return lvl, nil
}

func platformFrom(o *tiled.Object, prop bool) Platform {
	top := o.Properties.GetFloat("top")
	bottom := top - defaultThickness
	if o.Properties.GetString("bottom") != "" {
		bottom = o.Properties.GetFloat("bottom")
	}
	return Platform{
		Name:   o.Name,
		X:      o.X / PixelsPerUnit,
		Z:      o.Y / PixelsPerUnit,
		W:      o.Width / PixelsPerUnit,
		D:      o.Height / PixelsPerUnit,
		Bottom: bottom,
		Top:    top,
		Prop:   prop,
	}
}

// Spawn returns the spawn point for slot i, cycling through the list.
func (l *Level) Spawn(i int) SpawnPoint {
	if i < 0 {
		i = -i
	}
	return l.Spawns[i%len(l.Spawns)]
}

// LoadAllLevels discovers all .tmx files in levelsDir within fsys and returns
// them keyed by stem name plus a sorted list of names.
func LoadAllLevels(fsys fs.FS, levelsDir string) (map[string]*Level, []string, error) {
	pattern := levelsDir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", levelsDir)
	}

	levels := make(map[string]*Level, len(matches))
	names := make([]string, 0, len(matches))

	for _, path := range matches {
		lvl, err := LoadLevel(fsys, path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		levels[lvl.Name] = lvl
		names = append(names, lvl.Name)
	}

	sort.Strings(names)
	return levels, names, nil
}
