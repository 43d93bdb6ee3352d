package simulation

import (
	"claimsim/domain/claims"
	"claimsim/domain/core"
)

// Percentiles of a simulated distribution
type Percentiles struct {
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Distribution summarizes a sample of simulated values
type Distribution struct {
	Mean        float64     `json:"mean"`
	StdDev      float64     `json:"std_dev"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Percentiles Percentiles `json:"percentiles"`
}

// TrialTotals aggregates one trial across all claims
type TrialTotals struct {
	TrialID   int     `json:"trial_id"`
	OpenCount int     `json:"open_count"`
	TotalPaid float64 `json:"total_paid"`
}

// ClaimSummary aggregates one claim across all trials
type ClaimSummary struct {
	ClaimID         core.ClaimID        `json:"claim_id"`
	Status          claims.Status       `json:"status"`
	CaseReserve     float64             `json:"case_reserve"`
	PaidIncremental float64             `json:"paid_incremental"`
	ProbOpen        float64             `json:"prob_open"`
	ProbNonzero     float64             `json:"prob_nonzero"`
	Payment         Distribution        `json:"payment"`
	OutcomeShare    map[Outcome]float64 `json:"outcome_share"`
	Expected        ExpectedClaim       `json:"expected"`

	HasActuals   bool          `json:"has_actuals"`
	ActualStatus claims.Status `json:"actual_status,omitempty"`
	ActualPaid   float64       `json:"actual_paid,omitempty"`
}

// ExpectedClaim is the analytic expectation of a claim's outcome under the
// fitted models
type ExpectedClaim struct {
	ProbOpen    float64 `json:"prob_open"`
	ProbNonzero float64 `json:"prob_nonzero"`
	Payment     float64 `json:"payment"`
}

// BackTest compares simulated totals with known actuals
type BackTest struct {
	Actuals       claims.Actuals `json:"actuals"`
	OpenCountRank float64        `json:"open_count_rank"`
	TotalPaidRank float64        `json:"total_paid_rank"`
}

// Summary is the aggregated view of a simulation used by every output
type Summary struct {
	RunID  core.RunID          `json:"run_id"`
	Print  core.RunFingerprint `json:"fingerprint"`
	Config Config              `json:"config"`
	Claims int                 `json:"claims"`

	OpenCount Distribution `json:"open_count"`
	TotalPaid Distribution `json:"total_paid"`

	ExpectedOpenCount float64 `json:"expected_open_count"`
	ExpectedTotalPaid float64 `json:"expected_total_paid"`

	OutcomeShare map[Outcome]float64 `json:"outcome_share"`
	BackTest     *BackTest           `json:"back_test,omitempty"`

	Totals  []TrialTotals  `json:"-"`
	ByClaim []ClaimSummary `json:"-"`
}

// Claim finds the summary of one claim
func (s *Summary) Claim(id core.ClaimID) (ClaimSummary, bool) {
	for _, c := range s.ByClaim {
		if c.ClaimID == id {
			return c, true
		}
	}
	return ClaimSummary{}, false
}
