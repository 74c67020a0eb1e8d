package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/wire"
	kcp "github.com/xtaci/kcp-go/v5"
)

// KCPListener accepts KCP sessions speaking the wire codec.
type KCPListener struct {
	server   *Server
	listener net.Listener
	wg       sync.WaitGroup
}

// ListenKCP binds addr for KCP clients.
func (s *Server) ListenKCP(addr string) (*KCPListener, error) {
	l, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listen kcp %s: %w", addr, err)
	}
	log.Printf("[kcp] listening on %s", l.Addr())
	return newKCPListener(s, l), nil
}

func newKCPListener(s *Server, l net.Listener) *KCPListener {
	return &KCPListener{server: s, listener: l}
}

func (l *KCPListener) Addr() net.Addr { return l.listener.Addr() }

// Serve accepts sessions until ctx is cancelled.
func (l *KCPListener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.listener.Close()
	}()

	for {
		conn, err := l.accept()
		if err != nil {
			if ctx.Err() != nil {
				l.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept kcp: %w", err)
		}
		l.wg.Add(1)
		go l.handle(ctx, conn)
	}
}

func (l *KCPListener) accept() (net.Conn, error) {
	if kl, ok := l.listener.(*kcp.Listener); ok {
		sess, err := kl.AcceptKCP()
		if err != nil {
			return nil, err
		}
		sess.SetStreamMode(true)
		sess.SetNoDelay(1, 10, 2, 1)
		return sess, nil
	}
	return l.listener.Accept()
}

// handle reads frames from one session until it fails or says Leave.
func (l *KCPListener) handle(ctx context.Context, conn net.Conn) {
	defer l.wg.Done()
	defer conn.Close()

	peer := newQueuedPeer("kcp:"+conn.RemoteAddr().String(), l.server.opts.Net.OutboundQueue, func(msg any) error {
		return wire.WriteMessage(conn, msg)
	})
	defer peer.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		msg, err := wire.ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				log.Printf("[kcp] %s: %v", peer.ID(), err)
			}
			l.server.Disconnected(peer)
			return
		}
		switch msg.(type) {
		case messages.JoinRequest, messages.InputBatch, messages.ResyncRequest:
			l.server.Deliver(peer, msg)
		case messages.Leave:
			l.server.Deliver(peer, msg)
			return
		default:
			log.Printf("[kcp] %s sent unexpected %T", peer.ID(), msg)
		}
	}
}
