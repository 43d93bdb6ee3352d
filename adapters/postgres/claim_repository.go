package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/internal/logger"
	"claimsim/ports"

	"github.com/jmoiron/sqlx"
)

// claimRow mirrors one row of the claims table
type claimRow struct {
	ClaimID               string          `db:"claim_id"`
	EvalDate              time.Time       `db:"eval_date"`
	DevelopmentAge        int             `db:"development_age"`
	Status                string          `db:"status"`
	CaseReserve           float64         `db:"case_reserve"`
	PaidIncremental       float64         `db:"paid_incremental"`
	FutureStatus          sql.NullString  `db:"future_status"`
	FuturePaidIncremental sql.NullFloat64 `db:"future_paid_incremental"`
}

func (r claimRow) toClaim() (claims.Claim, error) {
	status, err := claims.ParseStatus(r.Status)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("claim %s: %w", r.ClaimID, err)
	}
	c := claims.Claim{
		ClaimID:         core.ClaimID(r.ClaimID),
		EvalDate:        core.NewEvalDate(r.EvalDate),
		DevelopmentAge:  r.DevelopmentAge,
		Status:          status,
		CaseReserve:     r.CaseReserve,
		PaidIncremental: r.PaidIncremental,
	}
	if r.FutureStatus.Valid && r.FutureStatus.String != "" {
		c.HasActuals = true
		if c.FutureStatus, err = claims.ParseStatus(r.FutureStatus.String); err != nil {
			return claims.Claim{}, fmt.Errorf("claim %s: %w", r.ClaimID, err)
		}
		c.FuturePaidIncremental = r.FuturePaidIncremental.Float64
	}
	return c, c.Validate()
}

func fromClaim(c claims.Claim) claimRow {
	r := claimRow{
		ClaimID:         c.ClaimID.String(),
		EvalDate:        c.EvalDate.Time(),
		DevelopmentAge:  c.DevelopmentAge,
		Status:          string(c.Status),
		CaseReserve:     c.CaseReserve,
		PaidIncremental: c.PaidIncremental,
	}
	if c.HasActuals {
		r.FutureStatus = sql.NullString{String: string(c.FutureStatus), Valid: true}
		r.FuturePaidIncremental = sql.NullFloat64{Float64: c.FuturePaidIncremental, Valid: true}
	}
	return r
}

// ClaimRepository reads and writes the claims table
type ClaimRepository struct {
	db *sqlx.DB
}

var _ ports.ClaimSource = (*ClaimRepository)(nil)

// NewClaimRepository creates a claims repository
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// LoadClaims returns every claim row ordered by evaluation date and ID
func (r *ClaimRepository) LoadClaims(ctx context.Context) ([]claims.Claim, error) {
	var rows []claimRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT claim_id, eval_date, development_age, status, case_reserve, paid_incremental,
			future_status, future_paid_incremental
		FROM claims
		ORDER BY eval_date, claim_id, development_age
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load claims: %w", err)
	}

	out := make([]claims.Claim, 0, len(rows))
	for _, row := range rows {
		c, err := row.toClaim()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	logger.FromContext(ctx).Infof("[ClaimRepository] loaded %d claims", len(out))
	return out, nil
}

// ImportClaims upserts claims keyed by (claim_id, eval_date, development_age)
func (r *ClaimRepository) ImportClaims(ctx context.Context, cs []claims.Claim) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(cs); start += batchSize {
		end := min(start+batchSize, len(cs))
		rows := make([]claimRow, 0, end-start)
		for _, c := range cs[start:end] {
			rows = append(rows, fromClaim(c))
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO claims (claim_id, eval_date, development_age, status, case_reserve, paid_incremental,
				future_status, future_paid_incremental)
			VALUES (:claim_id, :eval_date, :development_age, :status, :case_reserve, :paid_incremental,
				:future_status, :future_paid_incremental)
			ON CONFLICT (claim_id, eval_date, development_age) DO UPDATE SET
				status = EXCLUDED.status,
				case_reserve = EXCLUDED.case_reserve,
				paid_incremental = EXCLUDED.paid_incremental,
				future_status = EXCLUDED.future_status,
				future_paid_incremental = EXCLUDED.future_paid_incremental
		`, rows)
		if err != nil {
			return fmt.Errorf("failed to import claims: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit claims: %w", err)
	}
	logger.FromContext(ctx).Infof("[ClaimRepository] imported %d claims", len(cs))
	return nil
}
