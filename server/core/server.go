package core

import (
	"fmt"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/automoto/rollback-mp/tags"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/yohamta/donburi"
	"golang.org/x/time/rate"
)

// Options configure a Server.
type Options struct {
	Name        string
	Version     string // required client version, empty accepts any
	Level       *ServerLevel
	Params      sim.Params
	Net         config.NetConfig
	TokenSecret string

	// SyncWorld replicates every body to observers through esync. It needs
	// the necs router and is off for in-process servers.
	SyncWorld bool
}

// DefaultOptions returns options built from the config package.
func DefaultOptions(level *ServerLevel) Options {
	return Options{
		Name:        "Rollback Server",
		Level:       level,
		Params:      config.Sim,
		Net:         config.Net,
		TokenSecret: "rollback-dev-secret",
	}
}

// player is one controlled body and the connection that drives it. peer is
// nil while the body is parked waiting for a reconnect.
type player struct {
	id        string
	name      string
	netID     esync.NetworkId
	entity    donburi.Entity
	authority *Authority
	peer      Peer
	limiter   *rate.Limiter
	parkedAt  time.Time
}

// inbound is one message handed over by a transport goroutine.
type inbound struct {
	peer Peer
	msg  any
}

// peerGone marks a transport-level disconnect.
type peerGone struct{}

type ServerStats struct {
	Ticks       int
	Results     int
	Resyncs     int
	RateLimited int
	InboxDrops  int
	Joins       int
	Rejoins     int
	Rejects     int
}

// Server runs the authoritative loop. All simulation state is touched only by
// Step; transports hand messages over through Deliver.
type Server struct {
	opts   Options
	world  donburi.World
	clock  *tick.Clock
	epoch  time.Time
	tokens TokenIssuer

	inbox   chan inbound
	done    chan struct{}
	players map[string]*player // by player id
	byPeer  map[string]*player // by peer id
	nextID  int
	count   atomic.Int32
	drops   atomic.Int64
	stats   ServerStats
}

func NewServer(opts Options) *Server {
	queue := opts.Net.InboundQueue
	if queue <= 0 {
		queue = 1024
	}
	world := donburi.NewWorld()
	if opts.SyncWorld {
		srvsync.UseEsync(world)
	}
	return &Server{
		opts:    opts,
		world:   world,
		clock:   tick.NewClock(opts.Net.TickRate),
		epoch:   time.Unix(0, 0),
		tokens:  NewTokenIssuer(opts.TokenSecret, opts.Net.TokenTTL),
		inbox:   make(chan inbound, queue),
		done:    make(chan struct{}),
		players: make(map[string]*player),
		byPeer:  make(map[string]*player),
	}
}

// Deliver queues msg from peer for the next tick. It never blocks; when the
// loop has fallen behind the message is dropped and the client recovers
// through redundancy or a resync.
func (s *Server) Deliver(peer Peer, msg any) {
	select {
	case s.inbox <- inbound{peer: peer, msg: msg}:
	default:
		s.drops.Add(1)
	}
}

// Disconnected parks the body driven by peer.
func (s *Server) Disconnected(peer Peer) {
	// Disconnects must not be lost to a full inbox.
	select {
	case s.inbox <- inbound{peer: peer, msg: peerGone{}}:
	case <-s.done:
	}
}

// Step runs one authoritative tick and returns it.
func (s *Server) Step() tick.Tick {
	s.drain()
	t := s.clock.Advance()
	s.expireParked()

	players := s.sortedPlayers()
	results := s.advanceAll(players)
	for i, p := range players {
		res := results[i]
		s.mirror(p, res)
		if p.peer != nil {
			if err := p.peer.SendMessage(res); err != nil {
				log.Printf("[server] send result to %s: %v", p.peer.ID(), err)
			}
			s.stats.Results++
		}
	}

	s.stats.Ticks++
	if every := s.opts.Net.StatsEvery; every > 0 && s.stats.Ticks%every == 0 {
		st := s.Stats()
		log.Printf("[server] tick %d: %d players, %d results, %d resyncs, %d rate limited, %d inbox drops",
			t, len(players), st.Results, st.Resyncs, st.RateLimited, st.InboxDrops)
	}
	return t
}

// Now returns the last simulated tick.
func (s *Server) Now() tick.Tick { return s.clock.Now() }

func (s *Server) World() donburi.World { return s.world }

// PlayerCount returns the number of bodies, parked ones included. Safe to
// call from any goroutine.
func (s *Server) PlayerCount() int { return int(s.count.Load()) }

func (s *Server) Stats() ServerStats {
	st := s.stats
	st.InboxDrops = int(s.drops.Load())
	return st
}

// Authority returns the authority for a player id, for inspection.
func (s *Server) Authority(playerID string) (*Authority, bool) {
	p, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	return p.authority, true
}

// AuthorityOf returns the authority for the body replicated as netID.
func (s *Server) AuthorityOf(netID esync.NetworkId) (*Authority, bool) {
	for _, p := range s.players {
		if p.netID == netID {
			return p.authority, true
		}
	}
	return nil, false
}

func (s *Server) drain() {
	for {
		select {
		case in := <-s.inbox:
			s.handle(in.peer, in.msg)
		default:
			return
		}
	}
}

func (s *Server) handle(peer Peer, msg any) {
	switch m := msg.(type) {
	case messages.JoinRequest:
		s.onJoin(peer, m)
	case messages.InputBatch:
		s.onInput(peer, m)
	case messages.ResyncRequest:
		if p, ok := s.byPeer[peer.ID()]; ok {
			log.Printf("[server] %s requested resync at tick %d", p.id, m.Tick)
			s.pushResync(p)
		}
	case messages.Leave:
		if p, ok := s.byPeer[peer.ID()]; ok {
			log.Printf("[server] %s left", p.id)
			s.remove(p)
		}
	case peerGone:
		if p, ok := s.byPeer[peer.ID()]; ok {
			log.Printf("[server] %s disconnected, parking for %v", p.id, s.opts.Net.ReconnectGrace)
			delete(s.byPeer, peer.ID())
			p.peer = nil
			p.parkedAt = s.simTime()
		}
	}
}

func (s *Server) onJoin(peer Peer, req messages.JoinRequest) {
	if p, ok := s.byPeer[peer.ID()]; ok {
		// The accept was lost in transit; the client retries its join.
		s.accept(p)
		return
	}
	if s.opts.Version != "" && req.Version != s.opts.Version {
		s.reject(peer, fmt.Sprintf("version mismatch: server requires %s", s.opts.Version))
		return
	}

	if req.ReconnectToken != "" {
		if p, ok := s.reattach(peer, req.ReconnectToken); ok {
			s.stats.Rejoins++
			s.accept(p)
			s.pushResync(p)
			return
		}
	}

	if max := s.opts.Net.MaxPlayers; max > 0 && len(s.players) >= max {
		s.reject(peer, "server full")
		return
	}

	p, err := s.spawn(peer, req.PlayerName)
	if err != nil {
		log.Printf("[server] spawn for %s: %v", peer.ID(), err)
		s.reject(peer, "internal error")
		return
	}
	s.stats.Joins++
	s.accept(p)
	s.broadcast(messages.PlayerJoinedEvent{NetworkID: uint(p.netID), Name: p.name}, p)
}

func (s *Server) reattach(peer Peer, token string) (*player, bool) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		log.Printf("[server] reconnect from %s: %v", peer.ID(), err)
		return nil, false
	}
	p, ok := s.players[claims.PlayerID]
	if !ok {
		return nil, false
	}
	if p.peer != nil {
		// the old connection has not been noticed as dead yet
		delete(s.byPeer, p.peer.ID())
	}
	p.peer = peer
	s.byPeer[peer.ID()] = p
	log.Printf("[server] %s reattached to %s", peer.ID(), p.id)
	return p, true
}

func (s *Server) spawn(peer Peer, name string) (*player, error) {
	s.nextID++
	id := fmt.Sprintf("p-%d", s.nextID)
	if name == "" {
		name = id
	}

	state := s.opts.Level.Spawn(s.nextID - 1)
	params := s.opts.Params.WithSpawn(state)

	entity := s.world.Create(tags.Player, netcomponents.NetBody, netcomponents.NetAvatar)
	entry := s.world.Entry(entity)
	netcomponents.NetBody.Set(entry, &netcomponents.NetBodyData{
		Position: state.Position,
		Rotation: state.Rotation,
		Tick:     uint64(s.clock.Now()),
	})
	netcomponents.NetAvatar.Set(entry, &netcomponents.NetAvatarData{Name: name})

	netID := esync.NetworkId(s.nextID)
	if s.opts.SyncWorld {
		err := srvsync.NetworkSync(s.world, &entity,
			srvsync.WithInterp(netcomponents.NetBody),
			netcomponents.NetAvatar,
		)
		if err != nil {
			s.world.Remove(entity)
			return nil, fmt.Errorf("network sync: %w", err)
		}
		if nid := esync.GetNetworkId(s.world.Entry(entity)); nid != nil {
			netID = *nid
		}
	}

	p := &player{
		id:        id,
		name:      name,
		netID:     netID,
		entity:    entity,
		authority: NewAuthority(s.opts.Level.World, params, s.clock.DT(), s.clock.Now(), state, s.opts.Net.MaxInputAhead),
		peer:      peer,
		limiter:   newLimiter(s.opts.Net),
	}
	s.players[id] = p
	s.byPeer[peer.ID()] = p
	s.count.Store(int32(len(s.players)))
	log.Printf("[server] %s joined as %s (%s) at tick %d", peer.ID(), id, name, s.clock.Now())
	return p, nil
}

func (s *Server) accept(p *player) {
	token, err := s.tokens.Issue(p.id, p.name)
	if err != nil {
		log.Printf("[server] issue token for %s: %v", p.id, err)
	}
	snap := p.authority.Resync()
	_ = p.peer.SendMessage(messages.JoinAccepted{
		NetworkID:      p.netID,
		ReconnectToken: token,
		ServerName:     s.opts.Name,
		TickRate:       s.clock.Rate(),
		Level:          s.opts.Level.Name,
		StartTick:      snap.Tick,
		State:          snap.State,
		Spawn:          p.authority.params.Spawn,
	})
}

func (s *Server) reject(peer Peer, reason string) {
	s.stats.Rejects++
	log.Printf("[server] rejected %s: %s", peer.ID(), reason)
	_ = peer.SendMessage(messages.JoinRejected{Reason: reason})
}

func (s *Server) onInput(peer Peer, batch messages.InputBatch) {
	p, ok := s.byPeer[peer.ID()]
	if !ok {
		return
	}
	if !p.limiter.AllowN(s.simTime(), 1) {
		s.stats.RateLimited++
		return
	}
	if p.authority.EnqueueBatch(batch, s.opts.Net.StaleResyncAfter) {
		log.Printf("[server] %s inputs keep arriving late, pushing resync", p.id)
		s.pushResync(p)
	}
}

func (s *Server) pushResync(p *player) {
	if p.peer == nil {
		return
	}
	s.stats.Resyncs++
	_ = p.peer.SendMessage(p.authority.Resync())
}

func (s *Server) remove(p *player) {
	if p.peer != nil {
		delete(s.byPeer, p.peer.ID())
	}
	delete(s.players, p.id)
	s.count.Store(int32(len(s.players)))
	if s.world.Valid(p.entity) {
		s.world.Remove(p.entity)
	}
	s.broadcast(messages.PlayerLeftEvent{NetworkID: uint(p.netID)}, nil)
}

func (s *Server) expireParked() {
	grace := s.opts.Net.ReconnectGrace
	now := s.simTime()
	for _, p := range s.sortedPlayers() {
		if p.peer == nil && now.Sub(p.parkedAt) >= grace {
			log.Printf("[server] %s did not reconnect, removing", p.id)
			s.remove(p)
		}
	}
}

func (s *Server) broadcast(msg any, except *player) {
	for _, p := range s.sortedPlayers() {
		if p == except || p.peer == nil {
			continue
		}
		_ = p.peer.SendMessage(msg)
	}
}

// mirror copies the canonical state into the replicated component.
func (s *Server) mirror(p *player, res messages.AuthoritativeResult) {
	if !s.world.Valid(p.entity) {
		return
	}
	body := netcomponents.NetBody.Get(s.world.Entry(p.entity))
	body.Position = res.Position
	body.Rotation = res.Rotation
	body.Velocity = res.Velocity
	body.Grounded = res.Grounded
	body.Tick = uint64(res.Tick)
}

// sortedPlayers fixes iteration order so runs are reproducible.
func (s *Server) sortedPlayers() []*player {
	out := make([]*player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].entity < out[j].entity })
	return out
}

// simTime maps the tick counter onto a clock for rate limiting and parking,
// so both follow simulated rather than wall time.
func (s *Server) simTime() time.Time {
	return s.epoch.Add(time.Duration(s.clock.Now()) * s.clock.Interval())
}

func newLimiter(n config.NetConfig) *rate.Limiter {
	if n.InputRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(n.InputRate), n.InputBurst)
}
