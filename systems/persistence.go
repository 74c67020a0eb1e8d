package systems

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/quasilyte/gdata"
)

// SavedProfile is what the client remembers between runs.
type SavedProfile struct {
	PlayerName     string `json:"playerName"`
	LastServer     string `json:"lastServer"`
	Transport      string `json:"transport"`
	ReconnectToken string `json:"reconnectToken"`
}

// itemStore is the subset of gdata.Manager the profile needs.
type itemStore interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

const profileKey = "profile"

// Profiles loads and saves the client profile.
type Profiles struct {
	store itemStore
}

// OpenProfiles opens the per-user data directory for appName.
func OpenProfiles(appName string) (*Profiles, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, fmt.Errorf("open persistence: %w", err)
	}
	return &Profiles{store: m}, nil
}

// Load returns the saved profile, or an empty one if nothing was saved.
func (p *Profiles) Load() (SavedProfile, error) {
	var profile SavedProfile
	if p == nil || p.store == nil {
		return profile, nil
	}

	data, err := p.store.LoadItem(profileKey)
	if err != nil {
		return profile, fmt.Errorf("load profile: %w", err)
	}
	if len(data) == 0 {
		return profile, nil
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return SavedProfile{}, fmt.Errorf("parse profile: %w", err)
	}
	return profile, nil
}

func (p *Profiles) Save(profile SavedProfile) error {
	if p == nil || p.store == nil {
		return nil
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("serialize profile: %w", err)
	}
	if err := p.store.SaveItem(profileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// RememberToken stores the token handed out by the server, keeping the rest
// of the profile.
func (p *Profiles) RememberToken(server, token string) {
	profile, err := p.Load()
	if err != nil {
		log.Printf("[persistence] %v", err)
	}
	profile.LastServer = server
	profile.ReconnectToken = token
	if err := p.Save(profile); err != nil {
		log.Printf("[persistence] %v", err)
	}
}

// ReconnectToken returns the stored token if it was issued by server.
func (p *Profiles) ReconnectToken(server string) string {
	profile, err := p.Load()
	if err != nil || profile.LastServer != server {
		return ""
	}
	return profile.ReconnectToken
}
