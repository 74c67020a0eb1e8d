package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ServerEnv is the dedicated server's environment. Flags override it.
type ServerEnv struct {
	Name        string        `env:"ROLLBACK_SERVER_NAME" envDefault:"Rollback Server"`
	WSPort      uint          `env:"ROLLBACK_WS_PORT" envDefault:"7373"`
	KCPAddr     string        `env:"ROLLBACK_KCP_ADDR" envDefault:":7374"`
	Level       string        `env:"ROLLBACK_LEVEL" envDefault:"arena"`
	Version     string        `env:"ROLLBACK_VERSION"`
	TickRate    int           `env:"ROLLBACK_TICK_RATE" envDefault:"60"`
	TokenSecret string        `env:"ROLLBACK_TOKEN_SECRET" envDefault:"rollback-dev-secret"`
	MasterURL   string        `env:"ROLLBACK_MASTER_URL"`
	PublicAddr  string        `env:"ROLLBACK_PUBLIC_ADDR"`
	Region      string        `env:"ROLLBACK_REGION" envDefault:"local"`
	MaxPlayers  int           `env:"ROLLBACK_MAX_PLAYERS" envDefault:"16"`
	Grace       time.Duration `env:"ROLLBACK_RECONNECT_GRACE" envDefault:"10s"`
}

// ClientEnv is the headless client's environment.
type ClientEnv struct {
	Server     string `env:"ROLLBACK_SERVER"`
	MasterURL  string `env:"ROLLBACK_MASTER_URL"`
	Version    string `env:"ROLLBACK_VERSION"`
	Transport  string `env:"ROLLBACK_TRANSPORT" envDefault:"ws"`
	PlayerName string `env:"ROLLBACK_PLAYER_NAME"`
	Intent     string `env:"ROLLBACK_INTENT" envDefault:"wander"`
	Difficulty string `env:"ROLLBACK_BOT_DIFFICULTY" envDefault:"normal"`
	Seed       int64  `env:"ROLLBACK_SEED" envDefault:"1"`
}

// MasterEnv is the master registry's environment.
type MasterEnv struct {
	Port int           `env:"ROLLBACK_MASTER_PORT" envDefault:"8080"`
	TTL  time.Duration `env:"ROLLBACK_MASTER_TTL" envDefault:"90s"`
}
