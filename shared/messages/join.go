package messages

import (
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/leap-fish/necs/esync"
)

// JoinRequest is sent by a client after connecting to request joining the game.
type JoinRequest struct {
	Version        string
	PlayerName     string
	ReconnectToken string
}

// JoinAccepted is sent by the server when a client's join request is accepted.
// StartTick and State seed the client's clock and prediction.
type JoinAccepted struct {
	NetworkID      esync.NetworkId
	ReconnectToken string
	ServerName     string
	TickRate       int
	Level          string
	StartTick      tick.Tick
	State          sim.State
	Spawn          sim.State
}

// JoinRejected is sent by the server when a client's join request is rejected.
type JoinRejected struct {
	Reason string
}

// Leave is sent by a client before closing so the server can drop the entity
// without waiting for the reconnect grace period.
type Leave struct{}
