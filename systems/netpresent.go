package systems

import (
	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

type EventKind int

const (
	EventJump EventKind = iota
	EventLand
	EventRespawn
	EventReset
	EventCorrection // small, smoothed away
	EventSnap       // correction too large to smooth
	EventResync     // history lost, state replaced wholesale
)

func (k EventKind) String() string {
	switch k {
	case EventJump:
		return "jump"
	case EventLand:
		return "land"
	case EventRespawn:
		return "respawn"
	case EventReset:
		return "reset"
	case EventCorrection:
		return "correction"
	case EventSnap:
		return "snap"
	case EventResync:
		return "resync"
	}
	return "unknown"
}

// Event is something presentation reacts to: sound, dust, a hitch.
type Event struct {
	Kind      EventKind
	Tick      tick.Tick
	Magnitude float64 // correction distance
}

// Visible reports whether the player will notice the event as a hitch.
func (e Event) Visible() bool {
	return e.Kind == EventSnap || e.Kind == EventResync
}

// View is the read-only state handed to rendering.
type View struct {
	Position   mgl64.Vec3
	Rotation   mgl64.Quat
	Grounded   bool
	Correcting bool
}

// Presenter derives what to show from predicted state. It never writes back
// into the simulation: small corrections are eased out through a visual
// offset while the simulated body has already moved.
type Presenter struct {
	cfg    cfg.PresentConfig
	state  sim.State
	offset mgl64.Vec3
	tween  *gween.Tween
	events []Event
}

func NewPresenter(c cfg.PresentConfig) *Presenter {
	return &Presenter{cfg: c}
}

// Step records the outcome of a predicted tick.
func (p *Presenter) Step(t tick.Tick, s sim.State, out sim.Outcome) {
	p.state = s
	switch {
	case out.Reset:
		p.clearOffset()
		p.emit(Event{Kind: EventReset, Tick: t})
	case out.Respawned:
		p.clearOffset()
		p.emit(Event{Kind: EventRespawn, Tick: t})
	}
	if out.Jumped {
		p.emit(Event{Kind: EventJump, Tick: t})
	}
	if out.Landed {
		p.emit(Event{Kind: EventLand, Tick: t})
	}
}

// Correct is called when reconciliation moved the predicted body from before
// to after.
func (p *Presenter) Correct(t tick.Tick, before, after sim.State) {
	p.state = after
	dist := before.Position.Sub(after.Position).Len()
	if dist == 0 {
		return
	}
	if dist > p.cfg.SmoothCorrection || p.cfg.SmoothDuration <= 0 {
		p.clearOffset()
		p.emit(Event{Kind: EventSnap, Tick: t, Magnitude: dist})
		return
	}
	// Keep showing where the body was and ease toward where it is.
	p.offset = p.visualOffset().Add(before.Position.Sub(after.Position))
	p.tween = gween.New(1, 0, float32(p.cfg.SmoothDuration), ease.OutQuad)
	p.emit(Event{Kind: EventCorrection, Tick: t, Magnitude: dist})
}

// Resynced replaces the shown state outright.
func (p *Presenter) Resynced(t tick.Tick, before, after sim.State) {
	p.state = after
	p.clearOffset()
	p.emit(Event{Kind: EventResync, Tick: t, Magnitude: before.Position.Sub(after.Position).Len()})
}

// Advance moves the smoothing forward by dt seconds and returns the view.
func (p *Presenter) Advance(dt float64) View {
	if p.tween != nil {
		if _, done := p.tween.Update(float32(dt)); done {
			p.clearOffset()
		}
	}
	return p.View()
}

func (p *Presenter) View() View {
	return View{
		Position:   p.state.Position.Add(p.visualOffset()),
		Rotation:   p.state.Rotation,
		Grounded:   p.state.Grounded,
		Correcting: p.tween != nil,
	}
}

// Events returns and clears the pending events.
func (p *Presenter) Events() []Event {
	out := p.events
	p.events = nil
	return out
}

func (p *Presenter) visualOffset() mgl64.Vec3 {
	if p.tween == nil {
		return mgl64.Vec3{}
	}
	k, _ := p.tween.Update(0)
	return p.offset.Mul(float64(k))
}

func (p *Presenter) clearOffset() {
	p.offset = mgl64.Vec3{}
	p.tween = nil
}

func (p *Presenter) emit(e Event) {
	p.events = append(p.events, e)
}
