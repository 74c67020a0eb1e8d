package scenes

import (
	"errors"
	"fmt"
	"log"

	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/netcomponents"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/systems"
	"github.com/leap-fish/necs/esync"
	"github.com/yohamta/donburi"
)

var ErrJoinRejected = errors.New("join rejected")

// SnapshotSource is implemented by transports that also carry replicated
// world snapshots of the other players.
type SnapshotSource interface {
	LatestSnapshot() *esync.WorldSnapshot
}

// LevelResolver returns the collision world for a level name announced by
// the server.
type LevelResolver func(name string) (sim.World, error)

type SessionOptions struct {
	Server   string // address the reconnect token is stored under
	Intent   systems.IntentSource
	Levels   LevelResolver
	Params   sim.Params
	Net      cfg.NetConfig
	Present  cfg.PresentConfig
	Profiles *systems.Profiles // optional
}

// DefaultSessionOptions fills everything but the server, intent and levels
// from the config package.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Params:  cfg.Sim,
		Net:     cfg.Net,
		Present: cfg.Present,
	}
}

type SessionStats struct {
	Ticks         int
	Results       int
	Confirmed     int
	Corrections   int
	Snaps         int
	Desyncs       int
	Resyncs       int
	SendErrors    int
	MaxCorrection float64
}

// Session is the networked scene of a headless client: it samples intent,
// predicts the local body, reconciles against the server and interpolates
// everyone else. Update runs one client tick and must be called from a
// single goroutine.
type Session struct {
	ep        network.Endpoint
	snapshots SnapshotSource
	opts      SessionOptions

	sampler *systems.InputSampler
	pred    *systems.Predictor
	present *systems.Presenter
	interp  *systems.RemoteInterp
	world   donburi.World

	joined messages.JoinAccepted
	view   systems.View
	events []systems.Event
	err    error
	stats  SessionStats
}

func NewSession(ep network.Endpoint, opts SessionOptions) *Session {
	s := &Session{
		ep:      ep,
		opts:    opts,
		sampler: systems.NewInputSampler(opts.Intent),
		present: systems.NewPresenter(opts.Present),
		world:   donburi.NewWorld(),
	}
	if src, ok := ep.(SnapshotSource); ok {
		s.snapshots = src
	}
	s.interp = systems.NewRemoteInterp(s.world, 1)
	return s
}

// Join sends a join request, attaching a stored reconnect token when the
// request has none.
func (s *Session) Join(req messages.JoinRequest) error {
	if req.ReconnectToken == "" && s.opts.Profiles != nil {
		req.ReconnectToken = s.opts.Profiles.ReconnectToken(s.opts.Server)
	}
	return s.ep.SendMessage(req)
}

// Update runs one client tick. It returns an error once the server has
// rejected the join.
func (s *Session) Update() error {
	for _, msg := range s.ep.Drain() {
		s.handle(msg)
	}
	if s.err != nil {
		return s.err
	}
	if s.pred == nil || !s.pred.Started() {
		return nil
	}

	in := s.sampler.Sample(s.pred.Next())
	out, batch := s.pred.Tick(in)
	s.send(batch)
	if req, ok := s.pred.ResyncRequest(); ok {
		log.Printf("[session] requesting resync at tick %d", req.Tick)
		s.send(req)
	}

	s.present.Step(s.pred.Now(), s.pred.State(), out)
	s.view = s.present.Advance(s.pred.DT())
	s.events = append(s.events, s.present.Events()...)

	if s.snapshots != nil {
		if snap := s.snapshots.LatestSnapshot(); snap != nil {
			s.interp.ApplySnapshot(*snap)
		}
	}
	s.interp.Update()

	s.stats.Ticks++
	if every := s.opts.Net.StatsEvery; every > 0 && s.stats.Ticks%every == 0 {
		st := s.stats
		log.Printf("[session] tick %d: lead %d, %d results, %d corrections (max %.3f), %d snaps, %d resyncs",
			s.pred.Now(), s.pred.Lead(), st.Results, st.Corrections, st.MaxCorrection, st.Snaps, st.Resyncs)
	}
	return nil
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case messages.JoinAccepted:
		s.onJoined(m)
	case messages.JoinRejected:
		s.err = fmt.Errorf("%w: %s", ErrJoinRejected, m.Reason)
	case messages.AuthoritativeResult:
		s.onResult(m)
	case messages.Resync:
		if s.pred == nil {
			return
		}
		before := s.pred.State()
		if s.pred.ApplyResync(m) {
			s.stats.Resyncs++
			s.present.Resynced(m.Tick, before, s.pred.State())
		}
	case messages.PlayerJoinedEvent:
		log.Printf("[session] %s joined (id %d)", m.Name, m.NetworkID)
	case messages.PlayerLeftEvent:
		s.interp.Remove(esync.NetworkId(m.NetworkID))
	}
}

func (s *Session) onJoined(m messages.JoinAccepted) {
	if s.pred != nil && m.NetworkID == s.joined.NetworkID {
		// retried join; the server resyncs us if needed
		return
	}
	world, err := s.opts.Levels(m.Level)
	if err != nil {
		s.err = fmt.Errorf("level %q: %w", m.Level, err)
		return
	}
	net := s.opts.Net
	if m.TickRate > 0 {
		net.TickRate = m.TickRate
	}

	s.joined = m
	s.pred = systems.NewPredictor(world, s.opts.Params, net)
	s.pred.Start(m.StartTick, m.State, m.Spawn)
	s.present.Step(s.pred.Now(), s.pred.State(), sim.Outcome{})
	s.interp.SetLocal(m.NetworkID)
	if s.opts.Profiles != nil && m.ReconnectToken != "" {
		s.opts.Profiles.RememberToken(s.opts.Server, m.ReconnectToken)
	}
	log.Printf("[session] joined %s as %d at tick %d, predicting from %d",
		m.ServerName, m.NetworkID, m.StartTick, s.pred.Now())
}

func (s *Session) onResult(m messages.AuthoritativeResult) {
	if s.pred == nil {
		return
	}
	s.stats.Results++
	before := s.pred.State()
	out := s.pred.ApplyResult(m)
	switch out.Kind {
	case network.OutcomeConfirmed:
		s.stats.Confirmed++
	case network.OutcomeCorrected:
		s.stats.Corrections++
		dist := before.Position.Sub(out.State.Position).Len()
		s.stats.MaxCorrection = max(s.stats.MaxCorrection, dist)
		if dist > s.opts.Present.SmoothCorrection {
			s.stats.Snaps++
		}
		s.present.Correct(m.Tick, before, out.State)
	case network.OutcomeDesynced:
		s.stats.Desyncs++
	}
}

func (s *Session) send(msg any) {
	if err := s.ep.SendMessage(msg); err != nil {
		s.stats.SendErrors++
		if s.stats.SendErrors == 1 {
			log.Printf("[session] send failed: %v", err)
		}
	}
}

// Joined returns the accepted join, if any.
func (s *Session) Joined() (messages.JoinAccepted, bool) {
	return s.joined, s.pred != nil
}

// Predictor is nil until the join is accepted.
func (s *Session) Predictor() *systems.Predictor { return s.pred }

func (s *Session) View() systems.View { return s.view }

// Events returns and clears the presentation events since the last call.
func (s *Session) Events() []systems.Event {
	out := s.events
	s.events = nil
	return out
}

func (s *Session) Remotes() map[esync.NetworkId]netcomponents.NetBodyData {
	return s.interp.Bodies()
}

func (s *Session) Stats() SessionStats { return s.stats }
