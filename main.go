package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"claimsim/internal/config"
	"claimsim/internal/container"
	"claimsim/internal/logger"
	"claimsim/ui"

	"github.com/joho/godotenv"
)

// main runs the pipeline once with the environment's settings and serves
// the report viewer
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

	req, err := c.RunRequest()
	if err != nil {
		log.Fatalf("Failed to build run settings: %v", err)
	}
	run, err := c.Pipeline.Run(ctx, req)
	if err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}

	app, err := ui.NewApp(ui.Config{Port: cfg.Server.Port}, c.Runs)
	if err != nil {
		log.Fatalf("Failed to create UI app: %v", err)
	}
	app.SetRun(run)
	if err := app.Start(ctx); err != nil {
		log.Fatalf("UI server failed: %v", err)
	}
}
