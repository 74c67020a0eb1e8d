package network

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/wire"
	kcp "github.com/xtaci/kcp-go/v5"
)

const sendQueueSize = 128

// KCPClient speaks the wire codec over a KCP session. Reads and writes run on
// their own goroutines; the game loop only touches the queues.
type KCPClient struct {
	conn   net.Conn
	inbox  inbox
	sendCh chan any

	mu     sync.Mutex
	err    error
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Endpoint = (*KCPClient)(nil)

// DialKCP connects to addr and sends req as the first frame.
func DialKCP(ctx context.Context, addr string, req messages.JoinRequest) (*KCPClient, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("dial kcp %s: %w", addr, err)
	}
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 10, 2, 1)

	return startKCPClient(ctx, sess, req)
}

func startKCPClient(ctx context.Context, conn net.Conn, req messages.JoinRequest) (*KCPClient, error) {
	if err := wire.WriteMessage(conn, req); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send join request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &KCPClient{
		conn:   conn,
		inbox:  newInbox(inboxSize),
		sendCh: make(chan any, sendQueueSize),
		cancel: cancel,
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop(ctx)
	return c, nil
}

// SendMessage queues msg for the writer goroutine.
func (c *KCPClient) SendMessage(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrNotConnected
	}
	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *KCPClient) Drain() []any {
	return c.inbox.drain()
}

// Err returns the error that ended the session, if any.
func (c *KCPClient) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends Leave best-effort and tears the session down.
func (c *KCPClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	_ = wire.WriteMessage(c.conn, messages.Leave{})
	c.cancel()
	_ = c.conn.Close()
	c.wg.Wait()
}

func (c *KCPClient) readLoop() {
	defer c.wg.Done()
	for {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			c.fail(err)
			return
		}
		if rej, ok := msg.(messages.JoinRejected); ok {
			log.Printf("[kcp] join rejected: %s", rej.Reason)
		}
		c.inbox.push(msg)
	}
}

func (c *KCPClient) writeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.sendCh:
			if err := wire.WriteMessage(c.conn, msg); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *KCPClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.err == nil {
		c.err = fmt.Errorf("%w: %v", ErrConnectionLost, err)
		log.Printf("[kcp] session ended: %v", err)
	}
}
