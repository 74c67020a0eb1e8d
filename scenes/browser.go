package scenes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/automoto/rollback-mp/master"
)

var ErrNoServers = errors.New("no joinable servers")

// Browser queries the master registry for servers.
type Browser struct {
	masterURL  string
	httpClient *http.Client
}

func NewBrowser(masterURL string) *Browser {
	return &Browser{
		masterURL:  masterURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// List returns the registered servers matching f, most populated first.
func (b *Browser) List(ctx context.Context, f master.Filter) ([]master.ServerInfo, error) {
	q := url.Values{}
	if f.Version != "" {
		q.Set("version", f.Version)
	}
	if f.Transport != "" {
		q.Set("transport", f.Transport)
	}
	if f.Region != "" {
		q.Set("region", f.Region)
	}
	u := b.masterURL + "/servers"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		log.Printf("[browser] master server query failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("master server returned status %d", resp.StatusCode)
	}

	var servers []master.ServerInfo
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("decode server list: %w", err)
	}
	return servers, nil
}

// Pick returns the first listed server with a free slot.
func (b *Browser) Pick(ctx context.Context, f master.Filter) (master.ServerInfo, error) {
	servers, err := b.List(ctx, f)
	if err != nil {
		return master.ServerInfo{}, err
	}
	for _, s := range servers {
		if s.MaxPlayers <= 0 || s.Players < s.MaxPlayers {
			return s, nil
		}
	}
	return master.ServerInfo{}, ErrNoServers
}
