package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"claimsim/domain/core"
	"claimsim/internal/config"
	"claimsim/internal/container"
	"claimsim/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// overrides are the persistent flags layered over the environment
type overrides struct {
	claimsFile     string
	predictionDate string
	developmentAge int
	trials         int
	seed           uint64
	workers        int
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.claimsFile, "claims", "", "Claims table (.csv or .xlsx); overrides CLAIMS_FILE")
	f.StringVar(&o.predictionDate, "prediction-date", "", "Evaluation date of the claims to simulate (YYYY-MM-DD)")
	f.IntVar(&o.developmentAge, "development-age", 0, "Development age in months")
	f.IntVar(&o.trials, "trials", 0, "Number of simulation trials")
	f.Uint64Var(&o.seed, "seed", 0, "Simulation seed")
	f.IntVar(&o.workers, "workers", 0, "Simulation worker count (0 = all CPUs)")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("claims") {
		cfg.Data.ClaimsFile = o.claimsFile
	}
	if flags.Changed("prediction-date") {
		cfg.Window.PredictionDate = o.predictionDate
	}
	if flags.Changed("development-age") {
		cfg.Window.DevelopmentAge = o.developmentAge
	}
	if flags.Changed("trials") {
		cfg.Simulation.Trials = o.trials
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed = o.seed
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers = o.workers
	}
	return cfg.Validate()
}

// setup loads configuration, applies flag overrides and wires the container
func (o *overrides) setup(cmd *cobra.Command) (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := o.apply(cmd, cfg); err != nil {
		return nil, err
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Init(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func newRootCmd() *cobra.Command {
	opts := &overrides{}
	root := &cobra.Command{
		Use:           "claimsim",
		Short:         "Individual claim development model and Monte Carlo simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.register(root)

	root.AddCommand(
		newGenerateCmd(),
		newFitCmd(opts),
		newSimulateCmd(opts),
		newReportCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func main() {
	_ = godotenv.Load()

	log := logger.New()
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsFitError(err) {
			fmt.Fprintln(os.Stderr, "hint: the training window may be too small or a predictor may separate the classes")
		}
		os.Exit(1)
	}
}
