package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"descomplicacv/internal/bootstrap"
	"descomplicacv/internal/shared/config"
	"descomplicacv/internal/shared/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if !config.IsDevLike(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := bootstrap.BuildWeb(cfg)
	if err != nil {
		log.Fatalf("bootstrap web: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := server.Addr(cfg.WebPort)
	log.Printf("Starting web front end on %s (api %s)", addr, app.Client.BaseURL())
	if err := server.Serve(ctx, "web", addr, app.Router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
