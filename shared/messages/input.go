package messages

import "github.com/automoto/rollback-mp/shared/sim"

// InputBatch is sent from client to server every tick. It carries the newest
// input plus a few preceding ones, oldest first, so a single lost packet does
// not starve the authoritative queue. The server drops ticks it already has.
type InputBatch struct {
	Inputs []sim.Input
}

// Newest returns the last input in the batch.
func (b InputBatch) Newest() (sim.Input, bool) {
	if len(b.Inputs) == 0 {
		return sim.Input{}, false
	}
	return b.Inputs[len(b.Inputs)-1], true
}
