package network

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

// LinkConfig describes the misbehaviour of one direction of a Loopback.
// Latency and Jitter are in ticks.
type LinkConfig struct {
	Latency  int
	Jitter   int
	DropRate float64
	DupRate  float64
}

type pending struct {
	due int
	seq int
	msg any
}

// Link is one direction of an in-process transport. Every payload is copied
// through msgpack, so nothing sent can alias the sender's memory. Delivery is
// driven by Advance, which makes runs reproducible for a given seed.
type Link struct {
	cfg    LinkConfig
	rng    *rand.Rand
	handle *codec.MsgpackHandle
	now    int
	seq    int
	queue  []pending

	Sent, Dropped, Duplicated int
}

func NewLink(cfg LinkConfig, seed int64) *Link {
	return &Link{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		handle: &codec.MsgpackHandle{},
	}
}

// Send schedules msg for delivery. It never blocks.
func (l *Link) Send(msg any) error {
	cp, err := l.copy(msg)
	if err != nil {
		return err
	}
	l.Sent++
	if l.cfg.DropRate > 0 && l.rng.Float64() < l.cfg.DropRate {
		l.Dropped++
		return nil
	}
	l.schedule(cp)
	if l.cfg.DupRate > 0 && l.rng.Float64() < l.cfg.DupRate {
		l.Duplicated++
		l.schedule(cp)
	}
	return nil
}

// Advance moves the link one tick forward and returns the messages now due,
// in delivery order.
func (l *Link) Advance() []any {
	l.now++
	sort.SliceStable(l.queue, func(i, j int) bool {
		if l.queue[i].due != l.queue[j].due {
			return l.queue[i].due < l.queue[j].due
		}
		return l.queue[i].seq < l.queue[j].seq
	})

	n := 0
	for n < len(l.queue) && l.queue[n].due <= l.now {
		n++
	}
	out := make([]any, n)
	for i := range out {
		out[i] = l.queue[i].msg
	}
	l.queue = append(l.queue[:0], l.queue[n:]...)
	return out
}

// Configure changes the link behaviour for messages sent from now on.
// Messages already in flight keep their schedule.
func (l *Link) Configure(cfg LinkConfig) {
	l.cfg = cfg
}

// InFlight returns the number of undelivered messages.
func (l *Link) InFlight() int {
	return len(l.queue)
}

func (l *Link) schedule(msg any) {
	delay := l.cfg.Latency
	if l.cfg.Jitter > 0 {
		delay += l.rng.Intn(l.cfg.Jitter + 1)
	}
	l.seq++
	l.queue = append(l.queue, pending{due: l.now + delay, seq: l.seq, msg: msg})
}

func (l *Link) copy(msg any) (any, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, l.handle).Encode(msg); err != nil {
		return nil, fmt.Errorf("encode %T: %w", msg, err)
	}
	ptr := reflect.New(reflect.TypeOf(msg))
	if err := codec.NewDecoderBytes(buf, l.handle).Decode(ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %T: %w", msg, err)
	}
	return ptr.Elem().Interface(), nil
}

// Loopback joins a predicting client to an authoritative server in process.
type Loopback struct {
	id   string
	up   *Link // client -> server
	down *Link // server -> client
	recv []any
}

func NewLoopback(id string, up, down LinkConfig, seed int64) *Loopback {
	return &Loopback{
		id:   id,
		up:   NewLink(up, seed),
		down: NewLink(down, seed+1),
	}
}

// Client returns the predicting side's endpoint.
func (lb *Loopback) Client() Endpoint { return loopClient{lb} }

// Peer returns the server side's handle on this connection.
func (lb *Loopback) Peer() LoopPeer { return LoopPeer{lb} }

// Pump advances both directions by one tick. Messages bound for the server are
// handed to deliver; messages bound for the client wait for its next Drain.
func (lb *Loopback) Pump(deliver func(msg any)) {
	for _, msg := range lb.up.Advance() {
		deliver(msg)
	}
	lb.recv = append(lb.recv, lb.down.Advance()...)
}

// Links exposes the directions for stats.
func (lb *Loopback) Links() (up, down *Link) { return lb.up, lb.down }

type loopClient struct{ lb *Loopback }

func (c loopClient) SendMessage(msg any) error { return c.lb.up.Send(msg) }

func (c loopClient) Drain() []any {
	out := c.lb.recv
	c.lb.recv = nil
	return out
}

// LoopPeer is the server's end of a Loopback.
type LoopPeer struct{ lb *Loopback }

func (p LoopPeer) ID() string { return p.lb.id }

func (p LoopPeer) SendMessage(msg any) error { return p.lb.down.Send(msg) }
