package network

import "errors"

var (
	ErrNotConnected   = errors.New("not connected")
	ErrSendQueueFull  = errors.New("send queue full")
	ErrConnectionLost = errors.New("connection lost")
)

// Endpoint is the predicting side's handle on a transport. SendMessage never
// waits for the peer. Drain returns everything received since the last call,
// in arrival order, without blocking.
type Endpoint interface {
	SendMessage(msg any) error
	Drain() []any
}

// inbox is a bounded, non-blocking queue fed by transport goroutines and
// drained by the owning loop at the start of its tick.
type inbox struct {
	ch chan any
}

func newInbox(size int) inbox {
	return inbox{ch: make(chan any, size)}
}

// push enqueues msg, dropping it if the loop has fallen that far behind.
func (b inbox) push(msg any) bool {
	select {
	case b.ch <- msg:
		return true
	default:
		return false
	}
}

func (b inbox) drain() []any {
	return drainChan(b.ch)
}

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}
