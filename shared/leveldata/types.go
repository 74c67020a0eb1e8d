// Package leveldata provides TMX level parsing shared between client and server.
// It is pure data: no resolv, no donburi.
package leveldata

// PixelsPerUnit converts TMX pixel coordinates to world units.
const PixelsPerUnit = 16.0

// Level holds everything the movement step needs from a level file. The TMX
// X axis maps to world X and the TMX Y axis maps to world Z.
type Level struct {
	Name      string
	Width     float64 // world X extent
	Depth     float64 // world Z extent
	Platforms []Platform
	Spawns    []SpawnPoint
}

// Platform is a static box. Top is the walkable height.
type Platform struct {
	Name       string
	X, Z, W, D float64
	Bottom     float64
	Top        float64
	Prop       bool // on the props layer instead of ground
}

// SpawnPoint is a player spawn location in world units.
type SpawnPoint struct {
	X, Y, Z float64
	Index   int
}
