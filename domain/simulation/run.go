package simulation

import (
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
)

// Point is one (x, y) pair of a fitted curve
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Curve is a fitted model response traced over case reserve with the other
// predictors held fixed
type Curve struct {
	Stage  model.Stage `json:"stage"`
	Label  string      `json:"label"`
	Points []Point     `json:"points"`
}

// StageTiming records how long one pipeline stage took
type StageTiming struct {
	Stage string        `json:"stage"`
	Took  time.Duration `json:"took"`
}

// Run is everything one pipeline execution produced
type Run struct {
	ID        core.RunID    `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Window    claims.Window `json:"window"`

	TrainingRows   int `json:"training_rows"`
	PredictionRows int `json:"prediction_rows"`
	Skipped        int `json:"skipped"`

	Models  Models         `json:"models"`
	Curves  []Curve        `json:"curves"`
	Claims  []claims.Claim `json:"-"`
	Result  *Result        `json:"-"`
	Summary *Summary       `json:"summary"`
	Timings []StageTiming  `json:"timings"`
}
