package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/automoto/rollback-mp/assets"
	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/server/core"
	"github.com/automoto/rollback-mp/shared/protocol"
	"golang.org/x/sync/errgroup"
)

func main() {
	var env config.ServerEnv
	if err := config.ParseEnv(&env); err != nil {
		log.Fatalf("[server] %v", err)
	}

	port := flag.Uint("port", env.WSPort, "WebSocket port")
	kcpAddr := flag.String("kcp", env.KCPAddr, "KCP listen address (empty disables)")
	tickRate := flag.Int("tickrate", env.TickRate, "Simulation tick rate (ticks per second)")
	name := flag.String("name", env.Name, "Server display name")
	version := flag.String("version", env.Version, "Required client version (empty = accept any)")
	levelName := flag.String("level", env.Level, "Level to load")
	masterURL := flag.String("master", env.MasterURL, "Master server URL (empty disables registration)")
	publicAddr := flag.String("public", env.PublicAddr, "Address advertised to the master")
	flag.Parse()

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatalf("[server] failed to register components: %v", err)
	}

	lvl, err := assets.LoadLevel(*levelName)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	opts := core.DefaultOptions(core.NewServerLevel(*levelName, lvl))
	opts.Name = *name
	opts.Version = *version
	opts.TokenSecret = env.TokenSecret
	opts.SyncWorld = true
	opts.Net.TickRate = *tickRate
	opts.Net.MaxPlayers = env.MaxPlayers
	opts.Net.ReconnectGrace = env.Grace
	server := core.NewServer(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		core.NewGameLoop(server).Run(ctx)
		return nil
	})

	transports := []string{"ws"}
	if *kcpAddr != "" {
		l, err := server.ListenKCP(*kcpAddr)
		if err != nil {
			log.Fatalf("[server] %v", err)
		}
		transports = append(transports, "kcp")
		g.Go(func() error { return l.Serve(ctx) })
	}

	// The necs transport has no shutdown hook; it ends with the process.
	go func() {
		if err := server.ServeWebSocket(*port); err != nil {
			log.Printf("[server] websocket transport: %v", err)
			stop()
		}
	}()

	if *masterURL != "" && *publicAddr != "" {
		reg := core.NewRegistration(*masterURL, core.Listing{
			Name:       *name,
			Address:    *publicAddr,
			MaxPlayers: opts.Net.MaxPlayers,
			Version:    *version,
			Region:     env.Region,
			Transports: transports,
		}, server)
		reg.Start()
		defer reg.Stop()
	}

	log.Printf("[server] starting %q on port %d (tick rate: %d/s, level: %s, version: %q)",
		*name, *port, *tickRate, *levelName, *version)
	if err := g.Wait(); err != nil {
		log.Printf("[server] %v", err)
	}
	log.Println("[server] shut down")
}
