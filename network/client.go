package network

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

const inboxSize = 256

// Client manages a WebSocket connection to the game server.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	joined    messages.JoinAccepted
	conn      *websocket.Conn

	inbox      inbox
	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins
}

var _ Endpoint = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		state:      StateDisconnected,
		inbox:      newInbox(inboxSize),
		snapshotCh: make(chan esync.WorldSnapshot, 1),
	}
}

// Connect dials the server in a background goroutine and sends req once the
// socket is up.
func (c *Client) Connect(address string, req messages.JoinRequest) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Println("[client] connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.SendMessage(req); err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		log.Printf("[client] join accepted: networkID=%d server=%s tickRate=%d startTick=%d",
			msg.NetworkID, msg.ServerName, msg.TickRate, msg.StartTick)
		c.mu.Lock()
		c.joined = msg
		c.state = StateJoinedGame
		c.mu.Unlock()
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		log.Printf("[client] join rejected: %s", msg.Reason)
		c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.AuthoritativeResult) {
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.Resync) {
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerJoinedEvent) {
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.PlayerLeftEvent) {
		c.inbox.push(msg)
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		select { // drain stale, push latest
		case <-c.snapshotCh:
		default:
		}
		c.snapshotCh <- snapshot
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	_ = c.SendMessage(messages.Leave{})

	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Joined returns the accepted join, if any.
func (c *Client) Joined() (messages.JoinAccepted, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined, c.state == StateJoinedGame
}

// LatestSnapshot returns the most recent WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

// Drain returns every routed message received since the last call.
func (c *Client) Drain() []any {
	return c.inbox.drain()
}

func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
