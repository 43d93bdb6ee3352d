package container

import (
	"context"
	"fmt"

	"claimsim/adapters/excel"
	"claimsim/adapters/postgres"
	"claimsim/adapters/stats/gam"
	"claimsim/adapters/stats/glm"
	"claimsim/app"
	"claimsim/internal/config"
	"claimsim/internal/errors"
	"claimsim/internal/logger"
	"claimsim/internal/migration"
	"claimsim/internal/testkit"
	"claimsim/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Ports
	Source ports.ClaimSource
	Runs   ports.RunRepository
	RNG    ports.RNGPort

	Pipeline *app.Pipeline

	// Synthetic is set when no claims file or database is configured and
	// the generator supplies the claims table
	Synthetic bool
	TestKit   *testkit.TestKit
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config:  cfg,
		TestKit: testkit.NewTestKit(),
	}, nil
}

// Init connects the database when configured and wires the claim source,
// run store, RNG and pipeline. The claim source is CLAIMS_FILE when set,
// then the database's claims table, then synthetic claims.
func (c *Container) Init(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if c.Config.Database.URL != "" {
		if err := c.InitWithDatabase(ctx); err != nil {
			return err
		}
	}

	switch {
	case c.Config.Data.ClaimsFile != "":
		log.Infof("[Container] claims from file %s", c.Config.Data.ClaimsFile)
		c.Source = excel.NewClaimSource(c.Config.Data.ClaimsFile)
	case c.DB != nil:
		log.Infof("[Container] claims from database")
		c.Source = postgres.NewClaimRepository(c.DB)
	default:
		log.Warnf("[Container] no CLAIMS_FILE or DATABASE_URL configured, using synthetic claims")
		c.Synthetic = true
		c.Source = c.TestKit.ClaimSource(testkit.DefaultClaimsConfig())
	}

	if c.DB != nil {
		c.Runs = postgres.NewRunRepository(c.DB)
	} else {
		c.Runs = c.TestKit.RunStore()
	}
	c.RNG = c.TestKit.RNGAdapter()
	c.Pipeline = app.NewPipeline(c.Source, c.RNG, c.Runs, c.ModelOptions())
	return nil
}

// InitWithDatabase connects and migrates the database
func (c *Container) InitWithDatabase(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, c.Config.Database.Timeout)
	defer cancel()

	db, err := sqlx.ConnectContext(connectCtx, "postgres", c.Config.Database.URL)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to connect to database"))
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return errors.Wrap(err, "database migration failed")
	}
	c.DB = db
	logger.FromContext(ctx).Infof("[Container] database connected")
	return nil
}

// ModelOptions builds fitting options from the configuration
func (c *Container) ModelOptions() app.ModelOptions {
	opts := app.DefaultModelOptions()
	opts.CV = glm.CVOptions{
		Folds:   c.Config.Model.CVFolds,
		Repeats: c.Config.Model.CVRepeats,
		Seed:    c.Config.Simulation.Seed,
		Workers: c.Config.Simulation.Workers,
	}
	g := gam.DefaultOptions()
	g.BasisSize = c.Config.Model.GAMKnots
	opts.GAM = g
	return opts
}

// RunRequest builds the default pipeline request. With synthetic claims
// the prediction date defaults to the generator's last evaluation.
func (c *Container) RunRequest() (app.RunRequest, error) {
	cfg := *c.Config
	if c.Synthetic && cfg.Window.PredictionDate == "" {
		cfg.Window.PredictionDate = testkit.DefaultClaimsConfig().PredictionDate().String()
	}
	w, err := cfg.ClaimWindow()
	if err != nil {
		return app.RunRequest{}, err
	}
	return app.RunRequest{Window: w, Simulation: cfg.SimulationSettings()}, nil
}

// Shutdown releases the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
