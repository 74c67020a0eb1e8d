package systems

import (
	"log"

	cfg "github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
)

// Predictor runs the local body ahead of the server. Every tick it steps the
// shared simulation with the sampled input and records the result; incoming
// authoritative results are reconciled against that record.
type Predictor struct {
	world  sim.World
	params sim.Params
	dt     float64
	net    cfg.NetConfig

	state   sim.State
	now     tick.Tick
	started bool
	lead    int
	anchor  tick.Tick // snapshot tick of the last join or resync

	history *network.HistoryBuffer
	rec     *network.Reconciler

	// ticks since the last ResyncRequest while desynced
	resyncWait int
	requested  bool
}

func NewPredictor(w sim.World, p sim.Params, net cfg.NetConfig) *Predictor {
	pr := &Predictor{
		world:   w,
		params:  p,
		dt:      net.DT(),
		net:     net,
		lead:    net.InputLead,
		history: network.NewHistoryBuffer(net.HistorySize),
	}
	pr.rec = network.NewReconciler(pr.history, pr.replay, net.Tolerance)
	return pr
}

func (p *Predictor) replay(s sim.State, in sim.Input) sim.State {
	next, _ := sim.Step(p.world, p.params, s, in, p.dt)
	return next
}

// Start seeds prediction from a join: the body is s at tick t and respawns
// at spawn.
func (p *Predictor) Start(t tick.Tick, s, spawn sim.State) {
	p.params = p.params.WithSpawn(spawn)
	p.rec.Resync(messages.Resync{Tick: t, State: s})
	p.state = s
	p.now = t
	p.anchor = t
	p.started = true
	p.requested = false
	p.prefill()
}

// prefill predicts neutral ticks so the first real input is stamped far
// enough ahead to reach the server before it simulates that tick. The server
// substitutes the same neutral input for ticks it has no input for.
func (p *Predictor) prefill() {
	right, forward := sim.DefaultView()
	for i := 0; i < p.lead; i++ {
		p.advance(sim.Neutral(p.now+1, right, forward))
	}
}

// Started reports whether a join has seeded the predictor.
func (p *Predictor) Started() bool { return p.started }

// Next is the tick the next sampled input is for.
func (p *Predictor) Next() tick.Tick { return p.now + 1 }

func (p *Predictor) Now() tick.Tick { return p.now }

func (p *Predictor) State() sim.State { return p.state }

func (p *Predictor) Lead() int { return p.lead }

// Predicted returns the recorded state at t, if still in history.
func (p *Predictor) Predicted(t tick.Tick) (sim.State, bool) {
	e, ok := p.history.Get(t)
	return e.State, ok
}

// DT is the simulated seconds per tick.
func (p *Predictor) DT() float64 { return p.dt }

func (p *Predictor) Reconciler() *network.Reconciler { return p.rec }

// Tick predicts one tick with in, which must be stamped Next(). It returns
// the batch to send: the newest input plus up to Redundancy earlier ones.
func (p *Predictor) Tick(in sim.Input) (sim.Outcome, messages.InputBatch) {
	out := p.advance(in)
	return out, p.batch()
}

func (p *Predictor) advance(in sim.Input) sim.Outcome {
	in.Tick = p.now + 1
	var out sim.Outcome
	p.state, out = sim.Step(p.world, p.params, p.state, in, p.dt)
	p.now = in.Tick
	p.history.Record(p.now, in, p.state)
	return out
}

func (p *Predictor) batch() messages.InputBatch {
	from := tick.Tick(0)
	if r := tick.Tick(p.net.Redundancy); p.now > r {
		from = p.now - r
	}
	if from <= p.anchor {
		from = p.anchor + 1
	}
	entries := p.history.EntriesFrom(from)
	inputs := make([]sim.Input, 0, len(entries))
	for _, e := range entries {
		inputs = append(inputs, e.Input)
	}
	return messages.InputBatch{Inputs: inputs}
}

// ApplyResult reconciles one authoritative result. On a correction the
// predicted state jumps to the replayed one.
func (p *Predictor) ApplyResult(res messages.AuthoritativeResult) network.Outcome {
	if !p.started {
		return network.Outcome{Kind: network.OutcomeIgnored, Tick: res.Tick}
	}
	out := p.rec.Apply(res, p.now)
	switch out.Kind {
	case network.OutcomeCorrected:
		p.state = out.State
	case network.OutcomeDesynced:
		log.Printf("[predict] history no longer covers tick %d (now %d), desynced", res.Tick, p.now)
		p.resyncWait = 0
		p.requested = false
	}
	return out
}

// ApplyResync restarts prediction from a server snapshot. A resync the client
// did not ask for means its inputs arrive too late, so the lead grows.
func (p *Predictor) ApplyResync(r messages.Resync) bool {
	if !p.started {
		return false
	}
	unrequested := p.rec.State() != network.Desynced
	if !p.rec.Resync(r) {
		return false
	}
	if unrequested {
		p.lead = min(p.lead+p.lead/2+1, p.net.MaxInputLead)
		log.Printf("[predict] unrequested resync at tick %d, input lead now %d", r.Tick, p.lead)
	}
	p.state = r.State
	p.now = r.Tick
	p.anchor = r.Tick
	p.requested = false
	p.prefill()
	return true
}

// ResyncRequest returns a request to send while desynced: immediately, then
// again every ResyncRetryTicks until a Resync arrives.
func (p *Predictor) ResyncRequest() (messages.ResyncRequest, bool) {
	if p.rec.State() != network.Desynced {
		return messages.ResyncRequest{}, false
	}
	if p.requested {
		p.resyncWait++
		if p.resyncWait < p.net.ResyncRetryTicks {
			return messages.ResyncRequest{}, false
		}
	}
	p.requested = true
	p.resyncWait = 0
	return messages.ResyncRequest{Tick: p.now}, true
}
