package testkit

import (
	"math/rand/v2"
	"time"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
)

// SampleRun builds a small, internally consistent run without fitting
// anything: three claims (open, closed, open) with known actuals and
// trials drawn from fixed probabilities
func SampleRun(trials int) *simulation.Run {
	evalDate := core.NewEvalDate(time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	cs := FixedClaims(evalDate, claims.StatusOpen, claims.StatusClosed, claims.StatusOpen)
	actualStatus := []claims.Status{claims.StatusOpen, claims.StatusClosed, claims.StatusClosed}
	actualPaid := []float64{1200, 0, 300}
	for i := range cs {
		cs[i].HasActuals = true
		cs[i].FutureStatus = actualStatus[i]
		cs[i].FuturePaidIncremental = actualPaid[i]
	}

	rng := rand.New(rand.NewPCG(7, 11))
	res := &simulation.Result{
		Config: simulation.Config{Trials: trials, Seed: 7},
		Claims: claims.IDs(cs),
		Trials: make([][]simulation.Trial, trials),
	}
	totals := make([]simulation.TrialTotals, trials)
	byClaim := make([]simulation.ClaimSummary, len(cs))
	for i, c := range cs {
		byClaim[i] = simulation.ClaimSummary{
			ClaimID: c.ClaimID, Status: c.Status, CaseReserve: c.CaseReserve, PaidIncremental: c.PaidIncremental,
			OutcomeShare: map[simulation.Outcome]float64{},
			Expected:     simulation.ExpectedClaim{ProbOpen: 0.5, ProbNonzero: 0.8, Payment: 400},
			HasActuals:   true, ActualStatus: c.FutureStatus, ActualPaid: c.FuturePaidIncremental,
		}
	}

	share := map[simulation.Outcome]float64{}
	for t := 0; t < trials; t++ {
		row := make([]simulation.Trial, len(cs))
		totals[t].TrialID = t + 1
		for i, c := range cs {
			tr := simulation.Trial{TrialID: t + 1, ClaimID: c.ClaimID, FutureStatus: claims.StatusClosed}
			if rng.Float64() < 0.5 {
				tr.FutureStatus = claims.StatusOpen
				totals[t].OpenCount++
				byClaim[i].ProbOpen++
			}
			switch {
			case c.Status.IsClosed() && tr.FutureStatus.IsClosed():
				tr.Outcome = simulation.OutcomeClosedClosed
			case rng.Float64() < 0.8:
				tr.Outcome = simulation.OutcomeNonzero
				tr.Payment = float64(100 + rng.IntN(600))
				byClaim[i].ProbNonzero++
			default:
				tr.Outcome = simulation.OutcomeZero
			}
			totals[t].TotalPaid += tr.Payment
			byClaim[i].Payment.Mean += tr.Payment
			byClaim[i].OutcomeShare[tr.Outcome]++
			share[tr.Outcome]++
			row[i] = tr
		}
		res.Trials[t] = row
	}

	n := float64(trials)
	for i := range byClaim {
		byClaim[i].ProbOpen /= n
		byClaim[i].ProbNonzero /= n
		byClaim[i].Payment.Mean /= n
		for o := range byClaim[i].OutcomeShare {
			byClaim[i].OutcomeShare[o] /= n
		}
	}
	for o := range share {
		share[o] /= n * float64(len(cs))
	}

	var openSum, paidSum float64
	for _, t := range totals {
		openSum += float64(t.OpenCount)
		paidSum += t.TotalPaid
	}
	res.Print = core.ComputeRunFingerprint(7, trials, res.Claims)
	summary := &simulation.Summary{
		RunID:             core.NewRunID(),
		Print:             res.Print,
		Config:            res.Config,
		Claims:            len(cs),
		OpenCount:         simulation.Distribution{Mean: openSum / n, Max: float64(len(cs))},
		TotalPaid:         simulation.Distribution{Mean: paidSum / n},
		ExpectedOpenCount: 1.5,
		ExpectedTotalPaid: 1200,
		OutcomeShare:      share,
		BackTest: &simulation.BackTest{
			Actuals:       claims.ComputeActuals(cs),
			OpenCountRank: 0.4,
			TotalPaidRank: 0.7,
		},
		Totals:  totals,
		ByClaim: byClaim,
	}

	curve := func(stage model.Stage, label string, slope float64) simulation.Curve {
		c := simulation.Curve{Stage: stage, Label: label}
		for x := 0.0; x <= 10000; x += 1000 {
			c.Points = append(c.Points, simulation.Point{X: x, Y: 0.2 + slope*x})
		}
		return c
	}

	return &simulation.Run{
		ID:             summary.RunID,
		CreatedAt:      time.Date(2023, 7, 1, 9, 0, 0, 0, time.UTC),
		Window:         claims.Window{DevelopmentAge: 12, PredictionDate: evalDate},
		TrainingRows:   120,
		PredictionRows: len(cs),
		Models: simulation.Models{
			Closure: model.Summary{
				Stage: model.StageClosure, Method: "Logistic regression (stepwise AIC)", Response: "future_status",
				Observations: 120,
				Coefficients: []model.Coefficient{{Term: "(Intercept)", Estimate: -1.2, StdError: 0.3, ZValue: -4, PValue: 6e-5}},
				Deviance:     100, NullDeviance: 150, AIC: 104, Iterations: 5,
				Steps: []model.StepRecord{{Action: "start", Term: "<full>", AIC: 108}, {Action: "drop", Term: "paid_incremental", AIC: 104}},
				CV:    &model.CVMetrics{Folds: 5, Repeats: 3, Accuracy: 0.8, Kappa: 0.5, LogLoss: 0.45, Resamples: 15},
			},
			ZeroPayment: model.Summary{Stage: model.StageZeroPayment, Method: "Logistic regression (stepwise AIC)", Response: "nonzero_payment", Observations: 90},
			Payment: model.Summary{
				Stage: model.StagePayment, Method: "Quasi-Poisson GAM", Response: "future_paid_incremental", Observations: 70,
				Smooths: []model.SmoothTerm{{Term: "s(case_reserve)", Basis: 7, Lambda: 3.2, EDF: 2.4}},
				EDF:     4.4, GCV: 12.5, Dispersion: 40,
			},
		},
		Curves: []simulation.Curve{
			curve(model.StageClosure, "Open", 5e-5),
			curve(model.StageClosure, "Closed", 1e-5),
			curve(model.StageZeroPayment, "Open → Open", 4e-5),
		},
		Claims:  cs,
		Result:  res,
		Summary: summary,
		Timings: []simulation.StageTiming{{Stage: "fit", Took: 120 * time.Millisecond}},
	}
}
