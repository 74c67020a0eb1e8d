package tags

import "github.com/yohamta/donburi"

var (
	Player = donburi.NewTag().SetName("Player")
	Remote = donburi.NewTag().SetName("Remote")
)

// Resolv tags for the static collision layer
const (
	ResolvGround = "ground"
	ResolvProps  = "props"
)
