// Package master is the server directory: game servers register and
// heartbeat, clients list the ones still alive.
package master

import (
	"crypto/rand"
	"fmt"
	"log"
	"slices"
	"sort"
	"sync"
	"time"
)

// ServerInfo describes a game server visible to clients.
type ServerInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Players    int      `json:"players"`
	MaxPlayers int      `json:"maxPlayers"`
	Version    string   `json:"version"`
	Region     string   `json:"region"`
	TickRate   int      `json:"tickRate"`
	Transports []string `json:"transports"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Version   string
	Transport string
	Region    string
}

func (f Filter) match(info ServerInfo) bool {
	if f.Version != "" && info.Version != "" && info.Version != f.Version {
		return false
	}
	if f.Region != "" && info.Region != f.Region {
		return false
	}
	if f.Transport != "" && !slices.Contains(info.Transports, f.Transport) {
		return false
	}
	return true
}

type serverRecord struct {
	ServerInfo
	LastSeen time.Time
}

// Registry is an in-memory store of active game servers with TTL-based expiry.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*serverRecord
	ttl     time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		servers: make(map[string]*serverRecord),
		ttl:     ttl,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start runs the expiry sweep until Stop.
func (r *Registry) Start(every time.Duration) {
	go r.cleanupLoop(every)
}

func (r *Registry) Stop() {
	r.once.Do(func() { close(r.stopCh) })
}

func (r *Registry) Register(info ServerInfo) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	id := fmt.Sprintf("%x", b)

	info.ID = id

	r.mu.Lock()
	r.servers[id] = &serverRecord{
		ServerInfo: info,
		LastSeen:   r.now(),
	}
	r.mu.Unlock()

	return id
}

func (r *Registry) Heartbeat(id string, players int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return false
	}
	rec.LastSeen = r.now()
	rec.Players = players
	return true
}

func (r *Registry) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[id]; !ok {
		return false
	}
	delete(r.servers, id)
	return true
}

// List returns the live servers matching f, fullest first.
func (r *Registry) List(f Filter) []ServerInfo {
	r.mu.RLock()
	result := make([]ServerInfo, 0, len(r.servers))
	for _, rec := range r.servers {
		if f.match(rec.ServerInfo) {
			result = append(result, rec.ServerInfo)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Players != result[j].Players {
			return result[i].Players > result[j].Players
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// Expire drops servers not seen within the TTL and returns how many.
func (r *Registry) Expire() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	n := 0
	for id, rec := range r.servers {
		if now.Sub(rec.LastSeen) >= r.ttl {
			log.Printf("[master] expired server %q (id=%s, last seen %s ago)",
				rec.Name, id, now.Sub(rec.LastSeen).Round(time.Second))
			delete(r.servers, id)
			n++
		}
	}
	return n
}

func (r *Registry) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Expire()
		}
	}
}
