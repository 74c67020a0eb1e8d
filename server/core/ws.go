package core

import (
	"log"
	"sync"

	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

// wsPeers maps necs connections onto queued peers. Router callbacks run on
// transport goroutines.
type wsPeers struct {
	mu    sync.Mutex
	peers map[*router.NetworkClient]*queuedPeer
	size  int
}

func newWSPeers(size int) *wsPeers {
	return &wsPeers{peers: make(map[*router.NetworkClient]*queuedPeer), size: size}
}

// add creates the peer for a new connection. Only OnConnect adds peers, so
// messages racing a disconnect cannot bring one back.
func (w *wsPeers) add(client *router.NetworkClient) *queuedPeer {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.peers[client]; ok {
		return p
	}
	p := newQueuedPeer("ws:"+client.Id(), w.size, client.SendMessage)
	w.peers[client] = p
	return p
}

func (w *wsPeers) lookup(client *router.NetworkClient) (*queuedPeer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.peers[client]
	return p, ok
}

// deliver forwards msg from a connected client and drops it otherwise.
func (w *wsPeers) deliver(s *Server, client *router.NetworkClient, msg any) {
	if p, ok := w.lookup(client); ok {
		s.Deliver(p, msg)
	}
}

func (w *wsPeers) remove(client *router.NetworkClient) (*queuedPeer, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.peers[client]
	delete(w.peers, client)
	return p, ok
}

// ServeWebSocket registers the router callbacks and blocks serving the necs
// WebSocket transport on port.
func (s *Server) ServeWebSocket(port uint) error {
	peers := newWSPeers(s.opts.Net.OutboundQueue)

	router.OnConnect(func(client *router.NetworkClient) {
		log.Printf("[server] client connected: %s", client.Id())
		peers.add(client)
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		if err != nil {
			log.Printf("[server] client %s disconnected with error: %v", client.Id(), err)
		} else {
			log.Printf("[server] client %s disconnected", client.Id())
		}
		if p, ok := peers.remove(client); ok {
			p.Close()
			s.Disconnected(p)
		}
	})

	router.On(func(client *router.NetworkClient, msg messages.JoinRequest) {
		peers.deliver(s, client, msg)
	})
	router.On(func(client *router.NetworkClient, msg messages.InputBatch) {
		peers.deliver(s, client, msg)
	})
	router.On(func(client *router.NetworkClient, msg messages.ResyncRequest) {
		peers.deliver(s, client, msg)
	})
	router.On(func(client *router.NetworkClient, msg messages.Leave) {
		peers.deliver(s, client, msg)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[server] client error: %v", err)
	})

	transport := transports.NewWsServerTransport(port, "", nil)
	return transport.Start()
}
