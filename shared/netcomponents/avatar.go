package netcomponents

import "github.com/yohamta/donburi"

type NetAvatarData struct {
	Name    string
	IsLocal bool // Client-side only, not synced
}

var NetAvatar = donburi.NewComponentType[NetAvatarData]()
