package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"claimsim/adapters/stats/gam"
	"claimsim/adapters/stats/glm"
	"claimsim/adapters/stats/preprocess"
	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/internal/logger"
	"claimsim/ports"
)

// ModelOptions controls the three fitting stages
type ModelOptions struct {
	GLM  glm.Options
	CV   glm.CVOptions
	GAM  gam.Options
	NoCV bool
}

// DefaultModelOptions returns the report defaults
func DefaultModelOptions() ModelOptions {
	return ModelOptions{
		GLM: glm.DefaultOptions(),
		CV:  glm.DefaultCVOptions(),
		GAM: gam.DefaultOptions(),
	}
}

// feature is one model input read from the predictors. Continuous features
// are power-transformed and standardized before fitting.
type feature struct {
	name       string
	continuous bool
	value      func(model.Predictors) float64
}

var (
	featStatus = feature{name: "status", value: func(p model.Predictors) float64 {
		return p.Status.Indicator()
	}}
	featFutureStatus = feature{name: "future_status", value: func(p model.Predictors) float64 {
		return p.FutureStatus.Indicator()
	}}
	featCaseReserve = feature{name: "case_reserve", continuous: true, value: func(p model.Predictors) float64 {
		return p.CaseReserve
	}}
	featPaidIncremental = feature{name: "paid_incremental", continuous: true, value: func(p model.Predictors) float64 {
		return p.PaidIncremental
	}}
)

// LogisticModel is a fitted stepwise logistic classifier with its
// preprocessing
type LogisticModel struct {
	features []feature
	scalers  []*preprocess.PowerScaler
	fit      *glm.Logistic
	summary  model.Summary
}

var _ ports.ProbabilityModel = (*LogisticModel)(nil)

// PredictProbability returns P(event) for the predictors
func (m *LogisticModel) PredictProbability(p model.Predictors) (float64, error) {
	row, err := transformRow(m.features, m.scalers, p)
	if err != nil {
		return 0, err
	}
	return m.fit.Predict(row), nil
}

// Describe returns the fitted summary
func (m *LogisticModel) Describe() model.Summary {
	return m.summary
}

func transformRow(features []feature, scalers []*preprocess.PowerScaler, p model.Predictors) ([]float64, error) {
	row := make([]float64, len(features))
	for j, f := range features {
		v := f.value(p)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is %v", core.ErrInvalidPredictor, f.name, v)
		}
		if scalers[j] != nil {
			v = scalers[j].Apply(v)
		}
		row[j] = v
	}
	return row, nil
}

// preparedDesign fits the preprocessing on the given rows and builds the
// design. Features without variance are left out.
func preparedDesign(candidates []feature, preds []model.Predictors, y []float64) ([]feature, []*preprocess.PowerScaler, glm.Design, error) {
	var (
		features []feature
		scalers  []*preprocess.PowerScaler
	)
	for _, f := range candidates {
		col := make([]float64, len(preds))
		for i, p := range preds {
			col[i] = f.value(p)
		}
		if constant(col) {
			continue
		}
		var scaler *preprocess.PowerScaler
		if f.continuous {
			ps, err := preprocess.FitPowerScaler(f.name, col)
			if err != nil {
				return nil, nil, glm.Design{}, err
			}
			if ps.Constant {
				continue
			}
			scaler = &ps
		}
		features = append(features, f)
		scalers = append(scalers, scaler)
	}

	d := glm.Design{Y: y, Rows: make([][]float64, len(preds))}
	for _, f := range features {
		d.Names = append(d.Names, f.name)
	}
	for i, p := range preds {
		row, err := transformRow(features, scalers, p)
		if err != nil {
			return nil, nil, glm.Design{}, fmt.Errorf("row %d: %w", i, err)
		}
		d.Rows[i] = row
	}
	return features, scalers, d, nil
}

func constant(x []float64) bool {
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func fitStepwise(candidates []feature, preds []model.Predictors, y []float64, opts glm.Options) (*LogisticModel, []model.StepRecord, error) {
	features, scalers, d, err := preparedDesign(candidates, preds, y)
	if err != nil {
		return nil, nil, err
	}
	fit, steps, err := glm.StepAIC(d, opts)
	if err != nil {
		return nil, nil, err
	}
	return &LogisticModel{features: features, scalers: scalers, fit: fit}, steps, nil
}

func fitClassifier(ctx context.Context, stage model.Stage, response string, candidates []feature, rows []claims.Claim, y []float64, opts ModelOptions) (*LogisticModel, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s model: %w: no training rows", stage, core.ErrInsufficientData)
	}
	preds := make([]model.Predictors, len(rows))
	for i, c := range rows {
		preds[i] = model.FromClaim(c, c.FutureStatus)
	}

	m, steps, err := fitStepwise(candidates, preds, y, opts.GLM)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", stage, err)
	}

	m.summary = model.Summary{
		Stage:        stage,
		Method:       "logistic regression, stepwise AIC",
		Response:     response,
		Observations: len(rows),
		Terms:        m.fit.Names,
		Coefficients: m.fit.Coefficients(),
		Steps:        steps,
		Deviance:     m.fit.Deviance,
		NullDeviance: m.fit.NullDeviance,
		AIC:          m.fit.AIC,
		Iterations:   m.fit.Iterations,
	}
	if !m.fit.Converged {
		log.Warnw("[Models] IRLS did not converge", "stage", stage, "iterations", m.fit.Iterations)
	}

	if !opts.NoCV {
		fitter := func(_ context.Context, train []int) (glm.Scorer, error) {
			sub := make([]model.Predictors, len(train))
			subY := make([]float64, len(train))
			for i, r := range train {
				sub[i], subY[i] = preds[r], y[r]
			}
			fold, _, err := fitStepwise(candidates, sub, subY, opts.GLM)
			if err != nil {
				return nil, err
			}
			return func(row int) (float64, error) { return fold.PredictProbability(preds[row]) }, nil
		}
		cv, err := glm.CrossValidate(ctx, y, fitter, opts.CV)
		if err != nil {
			log.Warnw("[Models] cross-validation skipped", "stage", stage, "error", err)
		} else {
			m.summary.CV = &cv
		}
	}

	log.Infow("[Models] fitted",
		"stage", stage,
		"rows", len(rows),
		"terms", m.fit.Names,
		"aic", m.fit.AIC,
		"took", time.Since(start))
	return m, nil
}

// FitClosureModel fits P(open at the next age) on status, case reserve and
// prior incremental payment
func FitClosureModel(ctx context.Context, training []claims.Claim, opts ModelOptions) (*LogisticModel, error) {
	y := make([]float64, len(training))
	for i, c := range training {
		y[i] = c.FutureStatus.Indicator()
	}
	return fitClassifier(ctx, model.StageClosure, "future_status == open",
		[]feature{featStatus, featCaseReserve, featPaidIncremental}, training, y, opts)
}

// FitZeroPaymentModel fits P(nonzero next payment) on status, future status,
// case reserve and prior incremental payment. Closed-closed rows are
// excluded from training.
func FitZeroPaymentModel(ctx context.Context, training []claims.Claim, opts ModelOptions) (*LogisticModel, error) {
	rows := claims.ZeroPaymentTraining(training)
	y := make([]float64, len(rows))
	for i, c := range rows {
		if c.HasPayment() {
			y[i] = 1
		}
	}
	return fitClassifier(ctx, model.StageZeroPayment, "future_paid_incremental != 0",
		[]feature{featStatus, featFutureStatus, featCaseReserve, featPaidIncremental}, rows, y, opts)
}

// PaymentModel is the fitted quasi-Poisson GAM for nonzero payments
type PaymentModel struct {
	withStatus bool
	fit        *gam.Model
	summary    model.Summary
}

var _ ports.ExpectationModel = (*PaymentModel)(nil)

// PredictExpectation returns the expected payment given it is nonzero
func (m *PaymentModel) PredictExpectation(p model.Predictors) (float64, error) {
	if math.IsNaN(p.CaseReserve) || math.IsNaN(p.PaidIncremental) {
		return 0, fmt.Errorf("%w: NaN amount", core.ErrInvalidPredictor)
	}
	var parametric []float64
	if m.withStatus {
		parametric = []float64{p.FutureStatus.Indicator()}
	}
	return m.fit.Predict(parametric, []float64{p.CaseReserve, p.PaidIncremental})
}

// Describe returns the fitted summary
func (m *PaymentModel) Describe() model.Summary {
	return m.summary
}

// FitPaymentModel fits log E[payment] = β0 + β·open + s(case reserve) +
// s(prior incremental payment) on rows with a strictly positive payment
func FitPaymentModel(ctx context.Context, training []claims.Claim, opts ModelOptions) (*PaymentModel, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	rows := claims.PaymentTraining(training)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s model: %w: no positive payments", model.StagePayment, core.ErrInsufficientData)
	}

	n := len(rows)
	d := gam.Data{
		Y: make([]float64, n),
		Smooth: []gam.Column{
			{Name: featCaseReserve.name, Values: make([]float64, n)},
			{Name: featPaidIncremental.name, Values: make([]float64, n)},
		},
	}
	status := make([]float64, n)
	for i, c := range rows {
		d.Y[i] = c.FuturePaidIncremental
		status[i] = c.FutureStatus.Indicator()
		d.Smooth[0].Values[i] = c.CaseReserve
		d.Smooth[1].Values[i] = c.PaidIncremental
	}
	withStatus := !constant(status)
	if withStatus {
		d.Parametric = []gam.Column{{Name: featFutureStatus.name, Values: status}}
	}

	fit, err := gam.Fit(d, opts.GAM)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", model.StagePayment, err)
	}
	if !fit.Converged {
		log.Warnw("[Models] P-IRLS did not converge", "stage", model.StagePayment, "iterations", fit.Iterations)
	}

	terms := append([]string(nil), fit.Names...)
	for _, s := range fit.SmoothTerms() {
		terms = append(terms, s.Term)
	}
	m := &PaymentModel{withStatus: withStatus, fit: fit}
	m.summary = model.Summary{
		Stage:        model.StagePayment,
		Method:       "quasi-Poisson GAM, log link",
		Response:     "future_paid_incremental",
		Observations: n,
		Terms:        terms,
		Coefficients: fit.Coefficients(),
		Smooths:      fit.SmoothTerms(),
		Deviance:     fit.Deviance,
		NullDeviance: fit.NullDev,
		EDF:          fit.EDF,
		GCV:          fit.GCV,
		Dispersion:   fit.Dispersion,
		Iterations:   fit.Iterations,
	}

	log.Infow("[Models] fitted",
		"stage", model.StagePayment,
		"rows", n,
		"edf", fit.EDF,
		"dispersion", fit.Dispersion,
		"took", time.Since(start))
	return m, nil
}

// FitModels fits the three stages in order
func FitModels(ctx context.Context, training []claims.Claim, opts ModelOptions) (ports.FittedModels, error) {
	closure, err := FitClosureModel(ctx, training, opts)
	if err != nil {
		return ports.FittedModels{}, err
	}
	zero, err := FitZeroPaymentModel(ctx, training, opts)
	if err != nil {
		return ports.FittedModels{}, err
	}
	payment, err := FitPaymentModel(ctx, training, opts)
	if err != nil {
		return ports.FittedModels{}, err
	}
	return ports.FittedModels{Closure: closure, ZeroPayment: zero, Payment: payment}, nil
}
