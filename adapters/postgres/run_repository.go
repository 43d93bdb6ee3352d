package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/ports"

	"github.com/jmoiron/sqlx"
)

// batchSize keeps multi-row inserts under the Postgres parameter limit
const batchSize = 1000

type runRow struct {
	ID                string    `db:"id"`
	Fingerprint       string    `db:"fingerprint"`
	Trials            int       `db:"trials"`
	Seed              int64     `db:"seed"`
	Workers           int       `db:"workers"`
	Claims            int       `db:"claims"`
	OpenCount         []byte    `db:"open_count"`
	TotalPaid         []byte    `db:"total_paid"`
	ExpectedOpenCount float64   `db:"expected_open_count"`
	ExpectedTotalPaid float64   `db:"expected_total_paid"`
	OutcomeShare      []byte    `db:"outcome_share"`
	BackTest          []byte    `db:"back_test"`
	CreatedAt         time.Time `db:"created_at"`
}

type claimSummaryRow struct {
	RunID           string          `db:"run_id"`
	ClaimID         string          `db:"claim_id"`
	Status          string          `db:"status"`
	CaseReserve     float64         `db:"case_reserve"`
	PaidIncremental float64         `db:"paid_incremental"`
	ProbOpen        float64         `db:"prob_open"`
	ProbNonzero     float64         `db:"prob_nonzero"`
	Payment         []byte          `db:"payment"`
	OutcomeShare    []byte          `db:"outcome_share"`
	Expected        []byte          `db:"expected"`
	ActualStatus    sql.NullString  `db:"actual_status"`
	ActualPaid      sql.NullFloat64 `db:"actual_paid"`
}

type trialTotalRow struct {
	RunID     string  `db:"run_id"`
	TrialID   int     `db:"trial_id"`
	OpenCount int     `db:"open_count"`
	TotalPaid float64 `db:"total_paid"`
}

// RunRepository persists simulation summaries across three tables
type RunRepository struct {
	db *sqlx.DB
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func marshalAll(targets map[*[]byte]interface{}) error {
	for dst, v := range targets {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal: %w", err)
		}
		*dst = b
	}
	return nil
}

func toRunRow(s *simulation.Summary) (runRow, error) {
	row := runRow{
		ID:                s.RunID.String(),
		Fingerprint:       s.Print.String(),
		Trials:            s.Config.Trials,
		Seed:              int64(s.Config.Seed),
		Workers:           s.Config.Workers,
		Claims:            s.Claims,
		ExpectedOpenCount: s.ExpectedOpenCount,
		ExpectedTotalPaid: s.ExpectedTotalPaid,
		CreatedAt:         time.Now().UTC(),
	}
	err := marshalAll(map[*[]byte]interface{}{
		&row.OpenCount:    s.OpenCount,
		&row.TotalPaid:    s.TotalPaid,
		&row.OutcomeShare: s.OutcomeShare,
		&row.BackTest:     s.BackTest,
	})
	return row, err
}

func toClaimSummaryRow(runID core.RunID, c simulation.ClaimSummary) (claimSummaryRow, error) {
	row := claimSummaryRow{
		RunID:           runID.String(),
		ClaimID:         c.ClaimID.String(),
		Status:          string(c.Status),
		CaseReserve:     c.CaseReserve,
		PaidIncremental: c.PaidIncremental,
		ProbOpen:        c.ProbOpen,
		ProbNonzero:     c.ProbNonzero,
	}
	if c.HasActuals {
		row.ActualStatus = sql.NullString{String: string(c.ActualStatus), Valid: true}
		row.ActualPaid = sql.NullFloat64{Float64: c.ActualPaid, Valid: true}
	}
	err := marshalAll(map[*[]byte]interface{}{
		&row.Payment:      c.Payment,
		&row.OutcomeShare: c.OutcomeShare,
		&row.Expected:     c.Expected,
	})
	return row, err
}

func (r runRow) toSummary() (*simulation.Summary, error) {
	s := &simulation.Summary{
		RunID:             core.RunID(r.ID),
		Print:             core.RunFingerprint(r.Fingerprint),
		Config:            simulation.Config{Trials: r.Trials, Seed: uint64(r.Seed), Workers: r.Workers},
		Claims:            r.Claims,
		ExpectedOpenCount: r.ExpectedOpenCount,
		ExpectedTotalPaid: r.ExpectedTotalPaid,
	}
	for _, f := range []struct {
		src []byte
		dst interface{}
	}{
		{r.OpenCount, &s.OpenCount},
		{r.TotalPaid, &s.TotalPaid},
		{r.OutcomeShare, &s.OutcomeShare},
		{r.BackTest, &s.BackTest},
	} {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
	}
	return s, nil
}

func (r claimSummaryRow) toClaimSummary() (simulation.ClaimSummary, error) {
	c := simulation.ClaimSummary{
		ClaimID:         core.ClaimID(r.ClaimID),
		Status:          claims.Status(r.Status),
		CaseReserve:     r.CaseReserve,
		PaidIncremental: r.PaidIncremental,
		ProbOpen:        r.ProbOpen,
		ProbNonzero:     r.ProbNonzero,
	}
	if r.ActualStatus.Valid {
		c.HasActuals = true
		c.ActualStatus = claims.Status(r.ActualStatus.String)
		c.ActualPaid = r.ActualPaid.Float64
	}
	for _, f := range []struct {
		src []byte
		dst interface{}
	}{
		{r.Payment, &c.Payment},
		{r.OutcomeShare, &c.OutcomeShare},
		{r.Expected, &c.Expected},
	} {
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return c, fmt.Errorf("claim %s: %w", r.ClaimID, err)
		}
	}
	return c, nil
}

// SaveRun writes the summary, its claim summaries and its trial totals in
// one transaction, replacing any earlier copy of the run
func (r *RunRepository) SaveRun(ctx context.Context, s *simulation.Summary) error {
	run, err := toRunRow(s)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM simulation_runs WHERE id = $1`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}
	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO simulation_runs (id, fingerprint, trials, seed, workers, claims, open_count, total_paid,
			expected_open_count, expected_total_paid, outcome_share, back_test, created_at)
		VALUES (:id, :fingerprint, :trials, :seed, :workers, :claims, :open_count, :total_paid,
			:expected_open_count, :expected_total_paid, :outcome_share, :back_test, :created_at)
	`, run)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	claimRows := make([]claimSummaryRow, 0, len(s.ByClaim))
	for _, c := range s.ByClaim {
		row, err := toClaimSummaryRow(s.RunID, c)
		if err != nil {
			return err
		}
		claimRows = append(claimRows, row)
	}
	for start := 0; start < len(claimRows); start += batchSize {
		end := min(start+batchSize, len(claimRows))
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO simulation_claim_summaries (run_id, claim_id, status, case_reserve, paid_incremental,
				prob_open, prob_nonzero, payment, outcome_share, expected, actual_status, actual_paid)
			VALUES (:run_id, :claim_id, :status, :case_reserve, :paid_incremental,
				:prob_open, :prob_nonzero, :payment, :outcome_share, :expected, :actual_status, :actual_paid)
		`, claimRows[start:end])
		if err != nil {
			return fmt.Errorf("failed to save claim summaries: %w", err)
		}
	}

	totals := make([]trialTotalRow, len(s.Totals))
	for i, t := range s.Totals {
		totals[i] = trialTotalRow{RunID: run.ID, TrialID: t.TrialID, OpenCount: t.OpenCount, TotalPaid: t.TotalPaid}
	}
	for start := 0; start < len(totals); start += batchSize {
		end := min(start+batchSize, len(totals))
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO simulation_trial_totals (run_id, trial_id, open_count, total_paid)
			VALUES (:run_id, :trial_id, :open_count, :total_paid)
		`, totals[start:end])
		if err != nil {
			return fmt.Errorf("failed to save trial totals: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, fingerprint, trials, seed, workers, claims, open_count, total_paid,
		expected_open_count, expected_total_paid, outcome_share, back_test, created_at
	FROM simulation_runs`

// GetRun loads a summary with its claim summaries and trial totals
func (r *RunRepository) GetRun(ctx context.Context, id core.RunID) (*simulation.Summary, error) {
	var run runRow
	if err := r.db.GetContext(ctx, &run, selectRun+` WHERE id = $1`, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError("run", id.String())
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	s, err := run.toSummary()
	if err != nil {
		return nil, err
	}

	var claimRows []claimSummaryRow
	err = r.db.SelectContext(ctx, &claimRows, `
		SELECT run_id, claim_id, status, case_reserve, paid_incremental, prob_open, prob_nonzero,
			payment, outcome_share, expected, actual_status, actual_paid
		FROM simulation_claim_summaries
		WHERE run_id = $1
		ORDER BY claim_id
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim summaries: %w", err)
	}
	for _, row := range claimRows {
		c, err := row.toClaimSummary()
		if err != nil {
			return nil, err
		}
		s.ByClaim = append(s.ByClaim, c)
	}

	var totals []trialTotalRow
	err = r.db.SelectContext(ctx, &totals, `
		SELECT run_id, trial_id, open_count, total_paid
		FROM simulation_trial_totals
		WHERE run_id = $1
		ORDER BY trial_id
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trial totals: %w", err)
	}
	for _, t := range totals {
		s.Totals = append(s.Totals, simulation.TrialTotals{TrialID: t.TrialID, OpenCount: t.OpenCount, TotalPaid: t.TotalPaid})
	}
	return s, nil
}

// ListRuns returns the newest run headers first, without claim rows or
// trial totals
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*simulation.Summary, error) {
	query := selectRun + ` ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]*simulation.Summary, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSummary()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
