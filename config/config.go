package config

import (
	"time"

	"github.com/automoto/rollback-mp/shared/sim"
)

// NetConfig holds the prediction and transport tunables shared by client and
// server.
type NetConfig struct {
	TickRate    int // simulation ticks per second, both sides
	HistorySize int // predicted ticks retained for replay

	// Client
	InputLead        int // ticks the client predicts ahead of the server after a join or resync
	MaxInputLead     int // cap when the lead grows after repeated late inputs
	Redundancy       int // previous inputs resent with every batch
	ResyncRetryTicks int // re-send a ResyncRequest after this many ticks without a Resync

	// Server
	MaxInputAhead    int // inputs further than this ahead of the authority are dropped
	StaleResyncAfter int // consecutive late batches before a Resync is pushed
	InboundQueue     int
	OutboundQueue    int
	InputRate        float64 // batches per second per client, 0 disables limiting
	InputBurst       int
	ReconnectGrace   time.Duration
	TokenTTL         time.Duration
	MaxPlayers       int

	Tolerance  sim.Tolerance
	StatsEvery int // ticks between stats log lines, 0 disables
}

// PresentConfig controls how corrections are shown.
type PresentConfig struct {
	SmoothCorrection float64 // corrections shorter than this (units) are eased
	SmoothDuration   float64 // seconds
}

// Global configuration instances
var Sim sim.Params
var Net NetConfig
var Present PresentConfig

func init() {
	Sim = sim.DefaultParams()

	Net = NetConfig{
		TickRate:    60,
		HistorySize: 64,

		InputLead:        4,
		MaxInputLead:     24,
		Redundancy:       3,
		ResyncRetryTicks: 30,

		MaxInputAhead:    48,
		StaleResyncAfter: 8,
		InboundQueue:     1024,
		OutboundQueue:    128,
		InputRate:        90, // 1.5x tick rate tolerates bursts after a stall
		InputBurst:       30,
		ReconnectGrace:   10 * time.Second,
		TokenTTL:         time.Hour,
		MaxPlayers:       16,

		Tolerance: sim.Tolerance{
			Position: 0.01,
			Rotation: 0.01,
			Velocity: 0.05,
		},
		StatsEvery: 600,
	}

	Present = PresentConfig{
		SmoothCorrection: 1.0,
		SmoothDuration:   0.1,
	}
}

// DT returns the fixed simulation step in seconds.
func (n NetConfig) DT() float64 {
	return 1 / float64(n.TickRate)
}
