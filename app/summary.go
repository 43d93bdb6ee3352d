package app

import (
	"fmt"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/simulation"

	"github.com/montanaflynn/stats"
)

// Describe summarizes a simulated sample
func Describe(x []float64) simulation.Distribution {
	var d simulation.Distribution
	if len(x) == 0 {
		return d
	}
	d.Mean, _ = stats.Mean(x)
	d.Min, _ = stats.Min(x)
	d.Max, _ = stats.Max(x)
	if len(x) > 1 {
		d.StdDev, _ = stats.StandardDeviationSample(x)
	}
	d.Percentiles.P50, _ = stats.Percentile(x, 50)
	d.Percentiles.P75, _ = stats.Percentile(x, 75)
	d.Percentiles.P95, _ = stats.Percentile(x, 95)
	d.Percentiles.P99, _ = stats.Percentile(x, 99)
	return d
}

// PercentileRank is the mid-rank share of the sample at or below v
func PercentileRank(x []float64, v float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var below, equal float64
	for _, s := range x {
		switch {
		case s < v:
			below++
		case s == v:
			equal++
		}
	}
	return (below + equal/2) / float64(len(x))
}

// Summarize aggregates a simulation result. cs must be the claims the result
// was simulated from, in the same order; expected may be nil.
func Summarize(res *simulation.Result, cs []claims.Claim, expected []simulation.ExpectedClaim) (*simulation.Summary, error) {
	if len(cs) != len(res.Claims) {
		return nil, fmt.Errorf("summary: result has %d claims, got %d", len(res.Claims), len(cs))
	}
	for i, c := range cs {
		if c.ClaimID != res.Claims[i] {
			return nil, fmt.Errorf("summary: claim %d is %s, result has %s", i, c.ClaimID, res.Claims[i])
		}
	}
	if expected != nil && len(expected) != len(cs) {
		return nil, fmt.Errorf("summary: %d expectations for %d claims", len(expected), len(cs))
	}

	trials := len(res.Trials)
	sum := &simulation.Summary{
		RunID:        core.NewRunID(),
		Print:        res.Print,
		Config:       res.Config,
		Claims:       len(cs),
		OutcomeShare: make(map[simulation.Outcome]float64, len(simulation.Outcomes)),
		Totals:       make([]simulation.TrialTotals, trials),
		ByClaim:      make([]simulation.ClaimSummary, len(cs)),
	}

	openCounts := make([]float64, trials)
	totalPaid := make([]float64, trials)
	for t, row := range res.Trials {
		tot := simulation.TrialTotals{TrialID: t + 1}
		for _, tr := range row {
			if tr.FutureStatus.IsOpen() {
				tot.OpenCount++
			}
			tot.TotalPaid += tr.Payment
			sum.OutcomeShare[tr.Outcome]++
		}
		sum.Totals[t] = tot
		openCounts[t] = float64(tot.OpenCount)
		totalPaid[t] = tot.TotalPaid
	}
	records := float64(trials * len(cs))
	for k := range sum.OutcomeShare {
		sum.OutcomeShare[k] /= records
	}
	sum.OpenCount = Describe(openCounts)
	sum.TotalPaid = Describe(totalPaid)

	payments := make([]float64, trials)
	for i, c := range cs {
		cl := simulation.ClaimSummary{
			ClaimID:         c.ClaimID,
			Status:          c.Status,
			CaseReserve:     c.CaseReserve,
			PaidIncremental: c.PaidIncremental,
			OutcomeShare:    make(map[simulation.Outcome]float64, len(simulation.Outcomes)),
			HasActuals:      c.HasActuals,
		}
		if c.HasActuals {
			cl.ActualStatus = c.FutureStatus
			cl.ActualPaid = c.FuturePaidIncremental
		}
		var open, nonzero float64
		for t, row := range res.Trials {
			tr := row[i]
			payments[t] = tr.Payment
			if tr.FutureStatus.IsOpen() {
				open++
			}
			if tr.Outcome == simulation.OutcomeNonzero {
				nonzero++
			}
			cl.OutcomeShare[tr.Outcome]++
		}
		for k := range cl.OutcomeShare {
			cl.OutcomeShare[k] /= float64(trials)
		}
		cl.ProbOpen = open / float64(trials)
		cl.ProbNonzero = nonzero / float64(trials)
		cl.Payment = Describe(payments)
		if expected != nil {
			cl.Expected = expected[i]
			sum.ExpectedOpenCount += expected[i].ProbOpen
			sum.ExpectedTotalPaid += expected[i].Payment
		}
		sum.ByClaim[i] = cl
	}

	if actuals := claims.ComputeActuals(cs); actuals.Known {
		sum.BackTest = &simulation.BackTest{
			Actuals:       actuals,
			OpenCountRank: PercentileRank(openCounts, float64(actuals.OpenCount)),
			TotalPaidRank: PercentileRank(totalPaid, actuals.TotalPaid),
		}
	}
	return sum, nil
}
