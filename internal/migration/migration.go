package migration

import (
	"context"

	"claimsim/internal/errors"
	"claimsim/internal/logger"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// Step is one idempotent schema change
type Step struct {
	Name string
	SQL  string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	steps   []Step
}

var _ Migrator = (*MigrationRunner)(nil)

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		steps:   Steps(),
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	log := logger.FromContext(ctx)
	for i, step := range r.steps {
		log.Infof("[Migration] %03d %s", i+1, step.Name)
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to run migration %03d (%s)", i+1, step.Name))
		}
	}
	log.Infof("[Migration] schema at version %s", r.version)
	return nil
}

// Steps lists the schema in application order. Every statement can be
// rerun against an existing database.
func Steps() []Step {
	return []Step{
		{
			Name: "create claims table",
			SQL: `
		CREATE TABLE IF NOT EXISTS claims (
			claim_id VARCHAR(64) NOT NULL,
			eval_date DATE NOT NULL,
			development_age INTEGER NOT NULL CHECK (development_age >= 0),
			status VARCHAR(16) NOT NULL,
			case_reserve DOUBLE PRECISION NOT NULL DEFAULT 0,
			paid_incremental DOUBLE PRECISION NOT NULL DEFAULT 0,
			future_status VARCHAR(16),
			future_paid_incremental DOUBLE PRECISION,
			PRIMARY KEY (claim_id, eval_date, development_age)
		)`,
		},
		{
			Name: "create simulation_runs table",
			SQL: `
		CREATE TABLE IF NOT EXISTS simulation_runs (
			id VARCHAR(64) PRIMARY KEY,
			fingerprint VARCHAR(64) NOT NULL,
			trials INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			workers INTEGER NOT NULL DEFAULT 0,
			claims INTEGER NOT NULL,
			open_count JSONB NOT NULL,
			total_paid JSONB NOT NULL,
			expected_open_count DOUBLE PRECISION NOT NULL,
			expected_total_paid DOUBLE PRECISION NOT NULL,
			outcome_share JSONB,
			back_test JSONB,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		},
		{
			Name: "create simulation_claim_summaries table",
			SQL: `
		CREATE TABLE IF NOT EXISTS simulation_claim_summaries (
			run_id VARCHAR(64) NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
			claim_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			case_reserve DOUBLE PRECISION NOT NULL,
			paid_incremental DOUBLE PRECISION NOT NULL,
			prob_open DOUBLE PRECISION NOT NULL,
			prob_nonzero DOUBLE PRECISION NOT NULL,
			payment JSONB NOT NULL,
			outcome_share JSONB,
			expected JSONB NOT NULL,
			actual_status VARCHAR(16),
			actual_paid DOUBLE PRECISION,
			PRIMARY KEY (run_id, claim_id)
		)`,
		},
		{
			Name: "create simulation_trial_totals table",
			SQL: `
		CREATE TABLE IF NOT EXISTS simulation_trial_totals (
			run_id VARCHAR(64) NOT NULL REFERENCES simulation_runs(id) ON DELETE CASCADE,
			trial_id INTEGER NOT NULL,
			open_count INTEGER NOT NULL,
			total_paid DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, trial_id)
		)`,
		},
		{
			Name: "create indexes",
			SQL: `
		CREATE INDEX IF NOT EXISTS idx_claims_eval_age ON claims(eval_date, development_age);
		CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_simulation_runs_fingerprint ON simulation_runs(fingerprint)`,
		},
	}
}
