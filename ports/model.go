package ports

import (
	"claimsim/domain/model"
)

// ProbabilityModel is a fitted binary classifier
type ProbabilityModel interface {
	// PredictProbability returns P(event) for the predictors
	PredictProbability(p model.Predictors) (float64, error)
	Describe() model.Summary
}

// ExpectationModel is a fitted regression for an expected amount
type ExpectationModel interface {
	// PredictExpectation returns the expected response for the predictors
	PredictExpectation(p model.Predictors) (float64, error)
	Describe() model.Summary
}

// FittedModels bundles the three stages the simulator composes
type FittedModels struct {
	Closure     ProbabilityModel
	ZeroPayment ProbabilityModel
	Payment     ExpectationModel
}
