// Package assets embeds the level files shipped with the game.
package assets

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/automoto/rollback-mp/shared/leveldata"
)

//go:embed all:levels
var levelFS embed.FS

// LevelsDir is the directory holding .tmx files inside FS().
const LevelsDir = "levels"

// FS returns the embedded asset tree.
func FS() fs.FS {
	return levelFS
}

// LoadLevel loads an embedded level by stem name.
func LoadLevel(name string) (*leveldata.Level, error) {
	lvl, err := leveldata.LoadLevel(levelFS, fmt.Sprintf("%s/%s.tmx", LevelsDir, name))
	if err != nil {
		return nil, fmt.Errorf("load embedded level %q: %w", name, err)
	}
	return lvl, nil
}
