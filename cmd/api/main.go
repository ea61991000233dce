package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"descomplicacv/internal/bootstrap"
	"descomplicacv/internal/shared/config"
	"descomplicacv/internal/shared/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	log.Printf("Starting conversion API on %s", addr)
	if err := server.Serve(ctx, "api", addr, app.Router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
