package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
	"claimsim/internal/logger"
	"claimsim/ports"
)

// RunRequest configures one pipeline execution
type RunRequest struct {
	Window     claims.Window     `json:"window"`
	Simulation simulation.Config `json:"simulation"`
}

// Pipeline runs prepare → fit → simulate → summarize
type Pipeline struct {
	source  ports.ClaimSource
	rngPort ports.RNGPort
	runs    ports.RunRepository
	opts    ModelOptions
}

// NewPipeline creates a pipeline. runs may be nil to skip persistence.
func NewPipeline(source ports.ClaimSource, rngPort ports.RNGPort, runs ports.RunRepository, opts ModelOptions) *Pipeline {
	return &Pipeline{source: source, rngPort: rngPort, runs: runs, opts: opts}
}

type stageClock struct {
	timings []simulation.StageTiming
	last    time.Time
}

func (c *stageClock) lap(stage string) {
	now := time.Now()
	c.timings = append(c.timings, simulation.StageTiming{Stage: stage, Took: now.Sub(c.last)})
	c.last = now
}

func (p *Pipeline) prepare(ctx context.Context, w claims.Window) (*claims.Prepared, int, error) {
	all, err := p.source.LoadClaims(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load claims: %w", err)
	}
	prepared, err := claims.Prepare(all, w)
	if err != nil {
		return nil, 0, fmt.Errorf("prepare: %w", err)
	}
	return prepared, len(all), nil
}

// Fit loads and prepares the claims and fits the three models
func (p *Pipeline) Fit(ctx context.Context, w claims.Window) (*claims.Prepared, ports.FittedModels, error) {
	prepared, _, err := p.prepare(ctx, w)
	if err != nil {
		return nil, ports.FittedModels{}, err
	}
	models, err := FitModels(ctx, prepared.Training, p.opts)
	if err != nil {
		return nil, ports.FittedModels{}, err
	}
	return prepared, models, nil
}

// Run executes the whole pipeline
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*simulation.Run, error) {
	log := logger.FromContext(ctx)
	clock := &stageClock{last: time.Now()}

	prepared, rows, err := p.prepare(ctx, req.Window)
	if err != nil {
		return nil, err
	}
	clock.lap("prepare")
	log.Infow("[Pipeline] prepared",
		"rows", rows,
		"training", len(prepared.Training),
		"prediction", len(prepared.Prediction),
		"skipped", prepared.Skipped)

	models, err := FitModels(ctx, prepared.Training, p.opts)
	if err != nil {
		return nil, err
	}
	clock.lap("fit")

	res, err := NewSimulator(models, p.rngPort).Run(ctx, prepared.Prediction, req.Simulation)
	if err != nil {
		return nil, err
	}
	clock.lap("simulate")

	expected, err := ExpectedOutcome(models, prepared.Prediction)
	if err != nil {
		return nil, err
	}
	summary, err := Summarize(res, prepared.Prediction, expected)
	if err != nil {
		return nil, err
	}
	curves, err := FittedCurves(models, prepared.Training)
	if err != nil {
		return nil, err
	}
	clock.lap("summarize")

	run := &simulation.Run{
		ID:             summary.RunID,
		CreatedAt:      time.Now().UTC(),
		Window:         prepared.Window,
		TrainingRows:   len(prepared.Training),
		PredictionRows: len(prepared.Prediction),
		Skipped:        prepared.Skipped,
		Models: simulation.Models{
			Closure:     models.Closure.Describe(),
			ZeroPayment: models.ZeroPayment.Describe(),
			Payment:     models.Payment.Describe(),
		},
		Curves:  curves,
		Claims:  prepared.Prediction,
		Result:  res,
		Summary: summary,
	}

	if p.runs != nil {
		if err := p.runs.SaveRun(ctx, summary); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		clock.lap("persist")
	}
	run.Timings = clock.timings

	log.Infow("[Pipeline] run complete",
		"run_id", run.ID,
		"open_count_mean", summary.OpenCount.Mean,
		"total_paid_mean", summary.TotalPaid.Mean,
		"expected_total_paid", summary.ExpectedTotalPaid)
	return run, nil
}

const curvePoints = 40

// FittedCurves traces P(open) and P(nonzero) over the training range of
// case reserve, for each current status, with prior payment at its median
func FittedCurves(models ports.FittedModels, training []claims.Claim) ([]simulation.Curve, error) {
	if len(training) == 0 {
		return nil, nil
	}
	reserves := make([]float64, len(training))
	paid := make([]float64, len(training))
	for i, c := range training {
		reserves[i] = c.CaseReserve
		paid[i] = c.PaidIncremental
	}
	sort.Float64s(reserves)
	sort.Float64s(paid)
	lo, hi := reserves[0], reserves[len(reserves)-1]
	medianPaid := paid[len(paid)/2]

	xs := make([]float64, curvePoints)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(curvePoints-1)
	}

	var curves []simulation.Curve
	for _, status := range []claims.Status{claims.StatusOpen, claims.StatusClosed} {
		closure := simulation.Curve{Stage: model.StageClosure, Label: status.Label()}
		zero := simulation.Curve{Stage: model.StageZeroPayment, Label: status.Label() + " → Open"}
		for _, x := range xs {
			preds := model.Predictors{Status: status, FutureStatus: claims.StatusOpen, CaseReserve: x, PaidIncremental: medianPaid}
			pOpen, err := models.Closure.PredictProbability(preds)
			if err != nil {
				return nil, err
			}
			pNonzero, err := models.ZeroPayment.PredictProbability(preds)
			if err != nil {
				return nil, err
			}
			closure.Points = append(closure.Points, simulation.Point{X: x, Y: pOpen})
			zero.Points = append(zero.Points, simulation.Point{X: x, Y: pNonzero})
		}
		curves = append(curves, closure, zero)
	}
	return curves, nil
}
