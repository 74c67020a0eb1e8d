package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Listing is what the server announces to the master. Players is filled in
// from the live server on every request.
type Listing struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Players    int      `json:"players"`
	MaxPlayers int      `json:"maxPlayers"`
	Version    string   `json:"version"`
	Region     string   `json:"region"`
	TickRate   int      `json:"tickRate"`
	Transports []string `json:"transports"` // e.g. "ws", "kcp"
}

type listingID struct {
	ID string `json:"id"`
}

type playerCount struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

var errUnknownListing = errors.New("master does not know this server")

// Registration keeps a server listed on the master: it registers once,
// heartbeats the player count, and deregisters on Stop.
type Registration struct {
	master  string
	listing Listing
	every   time.Duration
	server  *Server
	client  *http.Client

	mu   sync.Mutex
	id   string
	stop chan struct{}
}

func NewRegistration(masterURL string, listing Listing, server *Server) *Registration {
	listing.TickRate = server.clock.Rate()
	return &Registration{
		master:  masterURL,
		listing: listing,
		every:   30 * time.Second,
		server:  server,
		client:  &http.Client{Timeout: 5 * time.Second},
		stop:    make(chan struct{}),
	}
}

func (r *Registration) Start() {
	if err := r.register(); err != nil {
		log.Printf("[registration] initial registration failed: %v", err)
	}
	go func() {
		ticker := time.NewTicker(r.every)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				if err := r.sendHeartbeat(); err != nil {
					log.Printf("[registration] heartbeat failed: %v", err)
				}
			}
		}
	}()
}

// Stop ends heartbeats and removes the listing.
func (r *Registration) Stop() {
	close(r.stop)
	r.mu.Lock()
	id := r.id
	r.id = ""
	r.mu.Unlock()
	if id == "" {
		return
	}
	if err := r.post("/servers/deregister", listingID{ID: id}, http.StatusOK, nil); err != nil {
		log.Printf("[registration] deregister failed: %v", err)
	}
}

// ID is empty until the master has accepted the listing.
func (r *Registration) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *Registration) register() error {
	l := r.listing
	l.Players = r.server.PlayerCount()

	var got listingID
	if err := r.post("/servers/register", l, http.StatusCreated, &got); err != nil {
		return err
	}
	r.mu.Lock()
	r.id = got.ID
	r.mu.Unlock()
	log.Printf("[registration] listed on master as %s", got.ID)
	return nil
}

// sendHeartbeat reports the player count, registering again when the master
// has expired the listing.
func (r *Registration) sendHeartbeat() error {
	err := r.post("/servers/heartbeat", playerCount{ID: r.ID(), Players: r.server.PlayerCount()}, http.StatusOK, nil)
	if errors.Is(err, errUnknownListing) {
		log.Println("[registration] listing expired, registering again")
		return r.register()
	}
	return err
}

// post sends payload as JSON and decodes the reply into out when out is
// non-nil. A 404 maps to errUnknownListing.
func (r *Registration) post(path string, payload any, want int, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", path, err)
	}
	resp, err := r.client.Post(r.master+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, errUnknownListing)
	case resp.StatusCode != want:
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}
