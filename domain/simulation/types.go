package simulation

import (
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
)

// Outcome classifies how a trial's payment was produced
type Outcome string

const (
	// OutcomeClosedClosed: closed now and simulated closed at the next age
	OutcomeClosedClosed Outcome = "closed_closed"
	// OutcomeZero: the zero-payment draw came up zero
	OutcomeZero Outcome = "zero"
	// OutcomeNonzero: payment drawn from the payment distribution
	OutcomeNonzero Outcome = "nonzero"
)

// Outcomes lists the outcome categories in report order
var Outcomes = []Outcome{OutcomeClosedClosed, OutcomeZero, OutcomeNonzero}

// Trial is one simulated realization for one claim
type Trial struct {
	TrialID      int           `json:"trial_id"`
	ClaimID      core.ClaimID  `json:"claim_id"`
	FutureStatus claims.Status `json:"future_status"`
	Payment      float64       `json:"payment"`
	Outcome      Outcome       `json:"outcome"`
}

// Config controls a simulation
type Config struct {
	Trials  int    `json:"trials"`
	Seed    uint64 `json:"seed"`
	Workers int    `json:"workers"`
}

// DefaultConfig mirrors the report defaults
func DefaultConfig() Config {
	return Config{
		Trials:  2000,
		Seed:    1234,
		Workers: 0,
	}
}

// Validate checks trial count and worker bounds
func (c Config) Validate() error {
	if c.Trials <= 0 {
		return core.NewValidationError("trials", "must be positive")
	}
	if c.Workers < 0 {
		return core.NewValidationError("workers", "cannot be negative")
	}
	return nil
}

// Result holds every trial of a simulation, indexed [trial][claim] in the
// order of Claims.
type Result struct {
	Config Config              `json:"config"`
	Claims []core.ClaimID      `json:"claims"`
	Trials [][]Trial           `json:"-"`
	Print  core.RunFingerprint `json:"fingerprint"`
	Took   time.Duration       `json:"took"`
}

// Each calls fn for every trial record in trial-major order
func (r *Result) Each(fn func(Trial)) {
	for _, row := range r.Trials {
		for _, t := range row {
			fn(t)
		}
	}
}

// ForClaim returns the trial records of one claim, in trial order
func (r *Result) ForClaim(id core.ClaimID) []Trial {
	idx := -1
	for i, c := range r.Claims {
		if c == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]Trial, len(r.Trials))
	for t, row := range r.Trials {
		out[t] = row[idx]
	}
	return out
}

// Models bundles the summaries of the three fitted stages
type Models struct {
	Closure     model.Summary `json:"closure"`
	ZeroPayment model.Summary `json:"zero_payment"`
	Payment     model.Summary `json:"payment"`
}
