package testkit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"claimsim/adapters/stats/draws"
	"claimsim/domain/claims"
	"claimsim/domain/core"
)

// ClaimsGeneratorConfig configures the synthetic claims table
type ClaimsGeneratorConfig struct {
	ClaimsPerPeriod int           `json:"claims_per_period"`
	Periods         int           `json:"periods"`
	PeriodMonths    int           `json:"period_months"`
	DevelopmentAge  int           `json:"development_age"`
	StartDate       core.EvalDate `json:"start_date"`
	OpenRate        float64       `json:"open_rate"`
	OtherAgeRate    float64       `json:"other_age_rate"`
	// WithholdActuals drops future actuals from the last period, as for a
	// live projection
	WithholdActuals bool   `json:"withhold_actuals"`
	Seed            uint64 `json:"seed"`
}

// DefaultClaimsConfig returns nine quarterly evaluations of 150 claims at
// age 12. The last quarter is the prediction date.
func DefaultClaimsConfig() ClaimsGeneratorConfig {
	return ClaimsGeneratorConfig{
		ClaimsPerPeriod: 150,
		Periods:         9,
		PeriodMonths:    3,
		DevelopmentAge:  12,
		StartDate:       core.NewEvalDate(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)),
		OpenRate:        0.55,
		OtherAgeRate:    0.1,
		Seed:            42,
	}
}

// PredictionDate is the evaluation date of the last generated period
func (c ClaimsGeneratorConfig) PredictionDate() core.EvalDate {
	return c.StartDate.AddMonths(c.PeriodMonths * (c.Periods - 1))
}

// Window selects the generated training and prediction rows
func (c ClaimsGeneratorConfig) Window() claims.Window {
	return claims.Window{DevelopmentAge: c.DevelopmentAge, PredictionDate: c.PredictionDate()}
}

// ClaimsGenerator produces claims whose development follows known logistic
// and log-linear relationships, so fitted models can be checked
type ClaimsGenerator struct {
	config ClaimsGeneratorConfig
	rng    *rand.Rand
}

// NewClaimsGenerator creates a new claims generator
func NewClaimsGenerator(config ClaimsGeneratorConfig) *ClaimsGenerator {
	return &ClaimsGenerator{
		config: config,
		rng:    rand.New(rand.NewPCG(config.Seed, 0)),
	}
}

// Generate returns the full claims table
func (g *ClaimsGenerator) Generate() []claims.Claim {
	var out []claims.Claim
	last := g.config.Periods - 1
	for p := 0; p < g.config.Periods; p++ {
		evalDate := g.config.StartDate.AddMonths(g.config.PeriodMonths * p)
		for i := 0; i < g.config.ClaimsPerPeriod; i++ {
			id := core.ClaimID(fmt.Sprintf("CLM-%02d-%04d", p+1, i+1))
			c := g.generateClaim(id, evalDate)
			if p == last && g.config.WithholdActuals {
				c.HasActuals = false
				c.FutureStatus = ""
				c.FuturePaidIncremental = 0
			}
			out = append(out, c)

			// The same claim at a later age falls outside the window
			if g.rng.Float64() < g.config.OtherAgeRate {
				later := g.generateClaim(id, evalDate.AddMonths(12))
				later.DevelopmentAge = g.config.DevelopmentAge + 12
				out = append(out, later)
			}
		}
	}
	return out
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func (g *ClaimsGenerator) lognormal(mu, sigma float64) float64 {
	return math.Round(math.Exp(mu + sigma*g.rng.NormFloat64()))
}

// generateClaim draws one claim and its development over the next period
func (g *ClaimsGenerator) generateClaim(id core.ClaimID, evalDate core.EvalDate) claims.Claim {
	c := claims.Claim{
		ClaimID:        id,
		EvalDate:       evalDate,
		DevelopmentAge: g.config.DevelopmentAge,
		Status:         claims.StatusClosed,
		HasActuals:     true,
	}

	if g.rng.Float64() < g.config.OpenRate {
		c.Status = claims.StatusOpen
		c.CaseReserve = g.lognormal(8.5, 1.1)
	} else if g.rng.Float64() < 0.15 {
		c.CaseReserve = g.lognormal(6, 1)
	}
	if g.rng.Float64() < 0.65 {
		c.PaidIncremental = g.lognormal(7, 1.2)
	}

	logCase := math.Log1p(c.CaseReserve)
	paid := 0.0
	if c.PaidIncremental > 0 {
		paid = 1
	}

	pOpen := logistic(-3 + 0.2*logCase)
	if c.Status.IsOpen() {
		pOpen = logistic(-0.3 + 0.45*(logCase-8.5) + 0.2*paid)
	}
	c.FutureStatus = claims.StatusClosed
	if g.rng.Float64() < pOpen {
		c.FutureStatus = claims.StatusOpen
	}

	if c.ClosedClosed() {
		return c
	}

	futureOpen := c.FutureStatus.Indicator()
	pNonzero := logistic(-0.8 + 1.6*futureOpen + 0.15*(logCase-5) + 0.5*paid)
	if g.rng.Float64() < pNonzero {
		mu := math.Exp(5.5 + 0.3*logCase + 0.15*math.Log1p(c.PaidIncremental) + 0.4*futureOpen)
		c.FuturePaidIncremental = math.Max(1, draws.NegativeBinomialMean(mu, g.rng))
	}
	return c
}
