package main

import (
	"flag"
	"log"

	"github.com/automoto/rollback-mp/assets"
	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/scenes"
	"github.com/automoto/rollback-mp/server/core"
	"github.com/automoto/rollback-mp/shared/sim"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/automoto/rollback-mp/systems"
)

func main() {
	clients := flag.Int("clients", 8, "Number of simulated clients")
	active := flag.Int("ticks", 3600, "Ticks of bot input")
	settle := flag.Int("settle", 600, "Idle ticks before measuring divergence")
	levelName := flag.String("level", "arena", "Level to load")
	latency := flag.Int("latency", 4, "One-way latency in ticks")
	jitter := flag.Int("jitter", 2, "Extra random latency in ticks")
	drop := flag.Float64("drop", 0.05, "Packet drop rate")
	dup := flag.Float64("dup", 0.01, "Packet duplication rate")
	difficulty := flag.String("difficulty", "normal", "Bot difficulty")
	seed := flag.Int64("seed", 1, "Seed for links and bots")
	flag.Parse()

	lvl, err := assets.LoadLevel(*levelName)
	if err != nil {
		log.Fatalf("[soak] %v", err)
	}
	level := core.NewServerLevel(*levelName, lvl)

	opts := core.DefaultOptions(level)
	opts.Net.MaxPlayers = *clients
	server := core.NewServer(opts)

	link := network.LinkConfig{Latency: *latency, Jitter: *jitter, DropRate: *drop, DupRate: *dup}
	bots := config.ParseBotDifficulty(*difficulty)
	soak := scenes.NewSoak(server, *clients, link, link, *seed, func(i int) scenes.SessionOptions {
		o := scenes.DefaultSessionOptions()
		o.Intent = systems.IdleAfter{
			Source: systems.NewWanderIntent(*seed+int64(i), bots),
			At:     tick.Tick(*active),
		}
		o.Levels = func(string) (sim.World, error) { return level.World, nil }
		return o
	})

	log.Printf("[soak] %d clients on %s, latency %d±%d, drop %.2f, dup %.2f",
		*clients, *levelName, *latency, *jitter, *drop, *dup)
	if err := soak.Run(*active + *settle); err != nil {
		log.Fatalf("[soak] %v", err)
	}

	diverged := 0
	for i, c := range soak.Clients {
		st := c.Session.Stats()
		t, d, ok := soak.Divergence(i)
		converged := ok && d.Within(config.Net.Tolerance)
		lead := 0
		if p := c.Session.Predictor(); p != nil {
			lead = p.Lead()
		}
		if !converged {
			diverged++
		}
		log.Printf("[soak] %s: %d results, %d corrections (max %.3f), %d snaps, %d desyncs, %d resyncs, lead %d; tick %d delta pos %.4f vel %.4f rot %.4f converged=%v",
			c.Name, st.Results, st.Corrections, st.MaxCorrection, st.Snaps, st.Desyncs, st.Resyncs,
			lead, t, d.Position, d.Velocity, d.Rotation, converged)
	}

	sst := server.Stats()
	log.Printf("[soak] server: %d ticks, %d results, %d resyncs, %d rate limited, %d joins",
		sst.Ticks, sst.Results, sst.Resyncs, sst.RateLimited, sst.Joins)
	if diverged > 0 {
		log.Fatalf("[soak] %d of %d clients did not converge", diverged, *clients)
	}
}
