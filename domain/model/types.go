package model

import (
	"claimsim/domain/claims"
)

// Predictors are the claim fields the fitted models read. Each model uses
// only the subset it was trained on.
type Predictors struct {
	Status          claims.Status `json:"status"`
	FutureStatus    claims.Status `json:"future_status"`
	CaseReserve     float64       `json:"case_reserve"`
	PaidIncremental float64       `json:"paid_incremental"`
}

// FromClaim builds predictors from a claim and an assumed future status
func FromClaim(c claims.Claim, future claims.Status) Predictors {
	return Predictors{
		Status:          c.Status,
		FutureStatus:    future,
		CaseReserve:     c.CaseReserve,
		PaidIncremental: c.PaidIncremental,
	}
}

// Stage names the three fitted models
type Stage string

const (
	StageClosure     Stage = "closure"
	StageZeroPayment Stage = "zero_payment"
	StagePayment     Stage = "payment"
)

// Coefficient is one row of a model's coefficient table
type Coefficient struct {
	Term     string  `json:"term"`
	Estimate float64 `json:"estimate"`
	StdError float64 `json:"std_error"`
	ZValue   float64 `json:"z_value"`
	PValue   float64 `json:"p_value"`
}

// SmoothTerm describes one penalized smooth of an additive model
type SmoothTerm struct {
	Term   string  `json:"term"`
	Basis  int     `json:"basis"`
	Lambda float64 `json:"lambda"`
	EDF    float64 `json:"edf"`
}

// StepRecord is one move of a stepwise search
type StepRecord struct {
	Action string  `json:"action"` // "start", "drop", "add"
	Term   string  `json:"term"`
	AIC    float64 `json:"aic"`
}

// CVMetrics summarizes repeated k-fold cross-validation of a classifier
type CVMetrics struct {
	Folds      int     `json:"folds"`
	Repeats    int     `json:"repeats"`
	Accuracy   float64 `json:"accuracy"`
	AccuracySD float64 `json:"accuracy_sd"`
	Kappa      float64 `json:"kappa"`
	KappaSD    float64 `json:"kappa_sd"`
	LogLoss    float64 `json:"log_loss"`
	LogLossSD  float64 `json:"log_loss_sd"`
	Resamples  int     `json:"resamples"`
}

// Summary is the reportable description of a fitted model
type Summary struct {
	Stage        Stage         `json:"stage"`
	Method       string        `json:"method"`
	Response     string        `json:"response"`
	Observations int           `json:"observations"`
	Terms        []string      `json:"terms"`
	Coefficients []Coefficient `json:"coefficients"`
	Smooths      []SmoothTerm  `json:"smooths,omitempty"`
	Steps        []StepRecord  `json:"steps,omitempty"`

	Deviance     float64 `json:"deviance"`
	NullDeviance float64 `json:"null_deviance"`
	AIC          float64 `json:"aic,omitempty"`
	EDF          float64 `json:"edf,omitempty"`
	GCV          float64 `json:"gcv,omitempty"`
	Dispersion   float64 `json:"dispersion,omitempty"`
	Iterations   int     `json:"iterations"`

	CV *CVMetrics `json:"cv,omitempty"`
}

// DevianceExplained returns 1 - deviance/null deviance
func (s Summary) DevianceExplained() float64 {
	if s.NullDeviance == 0 {
		return 0
	}
	return 1 - s.Deviance/s.NullDeviance
}
