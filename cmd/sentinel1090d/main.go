package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sentinel1090/internal/config"
)

func main() {
	var configPath, controlAddr string
	flag.StringVar(&configPath, "config", "./sentinel1090.yaml", "Path to YAML config")
	flag.StringVar(&controlAddr, "control-addr", ":8081", "Address for the line-oriented control channel (empty to disable)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newRuntime(cfg)
	if err != nil {
		log.Fatalf("runtime init failed: %v", err)
	}
	defer rt.Close()

	if err := rt.startControlServer(controlAddr); err != nil {
		log.Fatalf("control server init failed: %v", err)
	}

	log.Printf("sentinel1090d starting, %d source(s), %d channel(s)", len(cfg.Sources), len(cfg.Dispatcher.Channels))
	rt.Run(ctx)
	log.Printf("sentinel1090d stopping")
}
