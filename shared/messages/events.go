package messages

// PlayerJoinedEvent is broadcast when a body starts being simulated.
type PlayerJoinedEvent struct {
	NetworkID uint
	Name      string
}

// PlayerLeftEvent is broadcast when a body is removed.
type PlayerLeftEvent struct {
	NetworkID uint
}
