package core

import (
	"errors"
	"sync"
	"sync/atomic"
)

var ErrPeerClosed = errors.New("peer closed")

// Peer is the server's handle on one client connection. SendMessage must not
// block the tick loop.
type Peer interface {
	ID() string
	SendMessage(msg any) error
}

// queuedPeer puts a bounded queue in front of a connection whose writes may
// block. When the queue is full the oldest message is dropped; results are
// superseded by newer ones anyway.
type queuedPeer struct {
	id   string
	send func(msg any) error
	ch   chan any

	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func newQueuedPeer(id string, size int, send func(msg any) error) *queuedPeer {
	if size <= 0 {
		size = 1
	}
	p := &queuedPeer{
		id:   id,
		send: send,
		ch:   make(chan any, size),
		done: make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *queuedPeer) ID() string { return p.id }

func (p *queuedPeer) SendMessage(msg any) error {
	select {
	case <-p.done:
		return ErrPeerClosed
	default:
	}
	for {
		select {
		case p.ch <- msg:
			return nil
		default:
		}
		select {
		case <-p.ch:
			p.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns how many queued messages were discarded.
func (p *queuedPeer) Dropped() int64 { return p.dropped.Load() }

func (p *queuedPeer) Close() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *queuedPeer) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case msg := <-p.ch:
			if err := p.send(msg); err != nil {
				p.once.Do(func() { close(p.done) })
				return
			}
		}
	}
}
