package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/master"
	"github.com/automoto/rollback-mp/network"
	"github.com/automoto/rollback-mp/scenes"
	"github.com/automoto/rollback-mp/shared/messages"
	"github.com/automoto/rollback-mp/shared/protocol"
	"github.com/automoto/rollback-mp/shared/tick"
	"github.com/automoto/rollback-mp/systems"
)

func main() {
	var env config.ClientEnv
	if err := config.ParseEnv(&env); err != nil {
		log.Fatalf("[client] %v", err)
	}

	server := flag.String("server", env.Server, "Server address (empty browses the master)")
	masterURL := flag.String("master", env.MasterURL, "Master server URL")
	transport := flag.String("transport", env.Transport, "Transport: ws or kcp")
	name := flag.String("name", env.PlayerName, "Player name (empty uses the saved profile)")
	version := flag.String("version", env.Version, "Client version sent on join")
	intentName := flag.String("intent", env.Intent, "Input source: script or wander")
	difficulty := flag.String("difficulty", env.Difficulty, "Wander bot difficulty: easy, normal, hard")
	seed := flag.Int64("seed", env.Seed, "Wander bot seed")
	flag.Parse()

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("[client] failed to register components: %v", err)
	}

	profiles, err := systems.OpenProfiles("rollback-mp")
	if err != nil {
		log.Printf("[client] profiles unavailable: %v", err)
	}
	profile, err := profiles.Load()
	if err != nil {
		log.Printf("[client] %v", err)
	}
	if *name == "" {
		*name = profile.PlayerName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := *server
	if addr == "" {
		if *masterURL == "" {
			addr = "localhost:7373"
		} else {
			info, err := scenes.NewBrowser(*masterURL).Pick(ctx, master.Filter{Version: *version, Transport: *transport})
			if err != nil {
				log.Fatalf("[client] browse %s: %v", *masterURL, err)
			}
			log.Printf("[client] picked %s at %s (%d/%d players)", info.Name, info.Address, info.Players, info.MaxPlayers)
			addr = info.Address
		}
	}

	profile.PlayerName = *name
	profile.Transport = *transport
	if err := profiles.Save(profile); err != nil {
		log.Printf("[client] %v", err)
	}

	req := messages.JoinRequest{
		Version:        *version,
		PlayerName:     *name,
		ReconnectToken: profiles.ReconnectToken(addr),
	}

	var ep network.Endpoint
	var failed func() error
	switch *transport {
	case "kcp":
		c, err := network.DialKCP(ctx, addr, req)
		if err != nil {
			log.Fatalf("[client] %v", err)
		}
		defer c.Close()
		ep, failed = c, c.Err
	default:
		c := network.NewClient()
		c.Connect(addr, req)
		defer c.Disconnect()
		ep = c
		failed = func() error {
			if c.State() == network.StateError {
				return c.LastError()
			}
			return nil
		}
	}

	opts := scenes.DefaultSessionOptions()
	opts.Server = addr
	opts.Intent = chooseIntent(*intentName, *difficulty, *seed)
	opts.Levels = scenes.EmbeddedLevel
	opts.Profiles = profiles
	session := scenes.NewSession(ep, opts)

	log.Printf("[client] %s connecting to %s over %s", *name, addr, *transport)
	clock := tick.NewClock(config.Net.TickRate)
	clock.Run(ctx, func(tick.Tick) {
		if err := failed(); err != nil {
			log.Printf("[client] connection: %v", err)
			stop()
			return
		}
		if err := session.Update(); err != nil {
			log.Printf("[client] %v", err)
			stop()
		}
	})

	st := session.Stats()
	log.Printf("[client] done after %d ticks: %d results, %d corrections (max %.3f), %d resyncs",
		st.Ticks, st.Results, st.Corrections, st.MaxCorrection, st.Resyncs)
}

func chooseIntent(name, difficulty string, seed int64) systems.IntentSource {
	switch name {
	case "script":
		return systems.DefaultScript()
	default:
		return systems.NewWanderIntent(seed, config.ParseBotDifficulty(difficulty))
	}
}
