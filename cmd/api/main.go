package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"claimsim/internal/api"
	"claimsim/internal/config"
	"claimsim/internal/container"
	"claimsim/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.New().Info("No .env file found, using system environment variables")
	}
	log := logger.New()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	if err := c.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer c.Shutdown(context.Background())

	defaults, err := c.RunRequest()
	if err != nil {
		log.Fatalf("Failed to build default run settings: %v", err)
	}

	server := api.NewServer(api.Config{Port: cfg.Server.APIPort, GinMode: cfg.Server.GinMode}, c.Pipeline, c.Runs, defaults)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("API server failed: %v", err)
	}
}
