package scenes

import (
	"fmt"

	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/server/core"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// SoakClient is one session talking to the in-process server over a
// simulated link.
type SoakClient struct {
	Name    string
	Link    *network.Loopback
	Session *Session
}

// Soak drives an in-process server and its loopback clients in lockstep,
// one tick at a time, with no goroutines involved.
type Soak struct {
	Server  *core.Server
	Clients []*SoakClient

	joinRetry int
	ticks     int
}

// NewSoak creates n clients. opts returns the session options for client i;
// each link is seeded from seed so runs are reproducible.
func NewSoak(server *core.Server, n int, up, down network.LinkConfig, seed int64, opts func(i int) SessionOptions) *Soak {
	s := &Soak{Server: server, joinRetry: 30}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("bot-%d", i+1)
		lb := network.NewLoopback(name, up, down, seed+int64(i)*2)
		s.Clients = append(s.Clients, &SoakClient{
			Name:    name,
			Link:    lb,
			Session: NewSession(lb.Client(), opts(i)),
		})
	}
	return s
}

// Step runs one tick: every client updates, the links move, then the server
// simulates. Join requests are resent until accepted.
func (s *Soak) Step() error {
	for _, c := range s.Clients {
		if _, ok := c.Session.Joined(); !ok && s.ticks%s.joinRetry == 0 {
			if err := c.Session.Join(messages.JoinRequest{PlayerName: c.Name}); err != nil {
				return fmt.Errorf("%s join: %w", c.Name, err)
			}
		}
		if err := c.Session.Update(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	for _, c := range s.Clients {
		peer := c.Link.Peer()
		c.Link.Pump(func(msg any) { s.Server.Deliver(peer, msg) })
	}
	s.Server.Step()
	s.ticks++
	return nil
}

// Run steps n ticks, stopping at the first error.
func (s *Soak) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Divergence compares client i's prediction with the server at the newest
// tick the server has simulated for it.
func (s *Soak) Divergence(i int) (tick.Tick, sim.Delta, bool) {
	joined, ok := s.Clients[i].Session.Joined()
	if !ok {
		return 0, sim.Delta{}, false
	}
	auth, ok := s.Server.AuthorityOf(joined.NetworkID)
	if !ok {
		return 0, sim.Delta{}, false
	}
	t := auth.Next() - 1
	predicted, ok := s.Clients[i].Session.Predictor().Predicted(t)
	if !ok {
		return t, sim.Delta{}, false
	}
	return t, sim.Diff(predicted, auth.State()), true
}
