package systems

import "testing"

type memStore map[string][]byte

func (m memStore) LoadItem(key string) ([]byte, error) { return m[key], nil }

func (m memStore) SaveItem(key string, data []byte) error {
	m[key] = data
	return nil
}

func TestProfileRoundTrip(t *testing.T) {
	p := &Profiles{store: memStore{}}

	empty, err := p.Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if empty != (SavedProfile{}) {
		t.Fatalf("expected empty profile, got %+v", empty)
	}

	if err := p.Save(SavedProfile{PlayerName: "ada", Transport: "kcp"}); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}
	p.RememberToken("host:7373", "tok")

	got, err := p.Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if got.PlayerName != "ada" || got.Transport != "kcp" {
		t.Fatalf("expected name and transport kept, got %+v", got)
	}
	if p.ReconnectToken("host:7373") != "tok" {
		t.Fatalf("expected token for host, got %q", p.ReconnectToken("host:7373"))
	}
	if p.ReconnectToken("other:1") != "" {
		t.Fatal("expected no token for a different server")
	}
}

func TestProfileCorrupt(t *testing.T) {
	p := &Profiles{store: memStore{profileKey: []byte("{")}}
	if _, err := p.Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNilProfiles(t *testing.T) {
	var p *Profiles
	if err := p.Save(SavedProfile{}); err != nil {
		t.Fatalf("expected nil profiles to be a no-op, got %v", err)
	}
}
