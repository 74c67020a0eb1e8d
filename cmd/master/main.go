package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/automoto/rollback-mp/config"
	"github.com/automoto/rollback-mp/master"
)

func main() {
	var env config.MasterEnv
	if err := config.ParseEnv(&env); err != nil {
		log.Fatalf("[master] %v", err)
	}

	port := flag.Int("port", env.Port, "HTTP listen port")
	ttl := flag.Duration("ttl", env.TTL, "Server TTL before expiry")
	flag.Parse()

	reg := master.NewRegistry(*ttl)
	reg.Start(*ttl / 3)
	defer reg.Stop()

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("[master] starting on %s (TTL=%s)", addr, *ttl)
	if err := http.ListenAndServe(addr, master.NewMux(reg)); err != nil {
		log.Fatalf("[master] fatal: %v", err)
	}
}
