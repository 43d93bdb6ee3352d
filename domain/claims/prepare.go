package claims

import (
	"fmt"
	"sort"

	"claimsim/domain/core"
)

// Window selects the rows used for fitting and for projection.
//
// Training rows sit at DevelopmentAge with known actuals and an evaluation
// date in [TrainingFrom, TrainingTo]; a zero bound is open. When TrainingTo
// is zero only rows evaluated before PredictionDate are used. Prediction rows
// sit at DevelopmentAge and are evaluated exactly at PredictionDate.
type Window struct {
	DevelopmentAge int           `json:"development_age"`
	PredictionDate core.EvalDate `json:"prediction_date"`
	TrainingFrom   core.EvalDate `json:"training_from,omitempty"`
	TrainingTo     core.EvalDate `json:"training_to,omitempty"`
}

// Validate checks the window is usable
func (w Window) Validate() error {
	if w.DevelopmentAge <= 0 {
		return core.NewValidationError("development_age", "must be positive")
	}
	if w.PredictionDate.IsZero() {
		return core.NewValidationError("prediction_date", "is required")
	}
	if !w.TrainingFrom.IsZero() && !w.TrainingTo.IsZero() && w.TrainingTo.Before(w.TrainingFrom) {
		return core.NewValidationError("training_to", "is before training_from")
	}
	return nil
}

func (w Window) inTraining(c Claim) bool {
	if c.DevelopmentAge != w.DevelopmentAge || !c.HasActuals {
		return false
	}
	if !w.TrainingFrom.IsZero() && c.EvalDate.Before(w.TrainingFrom) {
		return false
	}
	if w.TrainingTo.IsZero() {
		return c.EvalDate.Before(w.PredictionDate)
	}
	return !c.EvalDate.After(w.TrainingTo)
}

func (w Window) inPrediction(c Claim) bool {
	return c.DevelopmentAge == w.DevelopmentAge && c.EvalDate.Equal(w.PredictionDate)
}

// Prepared is the output of data preparation
type Prepared struct {
	Window     Window  `json:"window"`
	Training   []Claim `json:"-"`
	Prediction []Claim `json:"-"`
	Skipped    int     `json:"skipped"`
}

// Prepare filters the claims table into training and prediction sets.
// Prediction rows are returned sorted by claim ID so that simulation output
// does not depend on input row order.
func Prepare(all []Claim, w Window) (*Prepared, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	out := &Prepared{Window: w}
	seen := make(map[core.ClaimID]bool)

	for _, c := range all {
		prediction, training := w.inPrediction(c), w.inTraining(c)
		if !prediction && !training {
			out.Skipped++
			continue
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		switch {
		case prediction:
			if seen[c.ClaimID] {
				return nil, fmt.Errorf("%w: %s at %s", core.ErrDuplicateClaim, c.ClaimID, c.EvalDate)
			}
			seen[c.ClaimID] = true
			out.Prediction = append(out.Prediction, c)
		default:
			out.Training = append(out.Training, c)
		}
	}

	if len(out.Training) == 0 {
		return nil, fmt.Errorf("%w: no training rows at age %d before %s", core.ErrInsufficientData, w.DevelopmentAge, w.PredictionDate)
	}
	if len(out.Prediction) == 0 {
		return nil, fmt.Errorf("%w: no claims at age %d evaluated %s", core.ErrInsufficientData, w.DevelopmentAge, w.PredictionDate)
	}

	sort.SliceStable(out.Prediction, func(i, j int) bool {
		return out.Prediction[i].ClaimID < out.Prediction[j].ClaimID
	})

	return out, nil
}

// ZeroPaymentTraining returns training rows that are not closed-closed.
// Closed-closed claims are zero by construction and carry no signal.
func ZeroPaymentTraining(training []Claim) []Claim {
	out := make([]Claim, 0, len(training))
	for _, c := range training {
		if !c.ClosedClosed() {
			out = append(out, c)
		}
	}
	return out
}

// PaymentTraining returns training rows with a strictly positive payment
func PaymentTraining(training []Claim) []Claim {
	out := make([]Claim, 0, len(training))
	for _, c := range training {
		if c.HasActuals && c.FuturePaidIncremental > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Actuals summarizes known outcomes for a set of claims
type Actuals struct {
	Known     bool    `json:"known"`
	OpenCount int     `json:"open_count"`
	TotalPaid float64 `json:"total_paid"`
}

// ComputeActuals totals actual outcomes; Known is false unless every claim
// carries actuals.
func ComputeActuals(cs []Claim) Actuals {
	if len(cs) == 0 {
		return Actuals{}
	}
	a := Actuals{Known: true}
	for _, c := range cs {
		if !c.HasActuals {
			return Actuals{}
		}
		if c.FutureStatus.IsOpen() {
			a.OpenCount++
		}
		a.TotalPaid += c.FuturePaidIncremental
	}
	return a
}
