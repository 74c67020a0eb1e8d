package core

import (
	"runtime"

	"github.com/automoto/rollback-mp/shared/messages"
	"golang.org/x/sync/errgroup"
)

// advanceAll steps every body once. Bodies share only the immutable collision
// layer, so they run in parallel; results come back in players order.
func (s *Server) advanceAll(players []*player) []messages.AuthoritativeResult {
	results := make([]messages.AuthoritativeResult, len(players))
	if len(players) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range players {
		g.Go(func() error {
			res, out := p.authority.Advance()
			results[i] = res
			if out.Reset {
				logReset(p.id, res.Tick)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
