package core

import (
	"context"
	"log"

	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/leap-fish/necs/esync/srvsync"
)

type GameLoop struct {
	server *Server
}

func NewGameLoop(server *Server) *GameLoop {
	return &GameLoop{server: server}
}

// Run ticks the server on its own clock until ctx is cancelled. Step
// advances the clock, so the loop only paces it.
func (g *GameLoop) Run(ctx context.Context) {
	log.Printf("[server] game loop started at %d ticks/second", g.server.clock.Rate())
	g.server.clock.Every(ctx, g.tick)
	close(g.server.done)
	log.Println("[server] game loop stopped")
}

func (g *GameLoop) tick() {
	g.server.Step()

	if g.server.opts.SyncWorld {
		if err := srvsync.DoSync(); err != nil {
			log.Printf("[server] sync error: %v", err)
		}
	}
}

func logReset(playerID string, t tick.Tick) {
	log.Printf("[authority] %s: non-finite state at tick %d, reset to spawn", playerID, t)
}
