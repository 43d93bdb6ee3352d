package app

import (
	"context"
	"testing"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_HandBuilt(t *testing.T) {
	cs := []claims.Claim{
		{ClaimID: "A", Status: claims.StatusOpen, HasActuals: true, FutureStatus: claims.StatusOpen, FuturePaidIncremental: 100},
		{ClaimID: "B", Status: claims.StatusClosed, HasActuals: true, FutureStatus: claims.StatusClosed},
	}
	res := &simulation.Result{
		Config: simulation.Config{Trials: 2, Seed: 1},
		Claims: []core.ClaimID{"A", "B"},
		Trials: [][]simulation.Trial{
			{
				{TrialID: 1, ClaimID: "A", FutureStatus: claims.StatusOpen, Payment: 50, Outcome: simulation.OutcomeNonzero},
				{TrialID: 1, ClaimID: "B", FutureStatus: claims.StatusClosed, Outcome: simulation.OutcomeClosedClosed},
			},
			{
				{TrialID: 2, ClaimID: "A", FutureStatus: claims.StatusClosed, Outcome: simulation.OutcomeZero},
				{TrialID: 2, ClaimID: "B", FutureStatus: claims.StatusOpen, Payment: 150, Outcome: simulation.OutcomeNonzero},
			},
		},
	}

	sum, err := Summarize(res, cs, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 2, sum.Claims)
	assert.Equal(t, []simulation.TrialTotals{
		{TrialID: 1, OpenCount: 1, TotalPaid: 50},
		{TrialID: 2, OpenCount: 1, TotalPaid: 150},
	}, sum.Totals)
	assert.InDelta(t, 100, sum.TotalPaid.Mean, 1e-9)
	assert.InDelta(t, 50, sum.TotalPaid.Min, 1e-9)
	assert.InDelta(t, 150, sum.TotalPaid.Max, 1e-9)
	assert.InDelta(t, 0.5, sum.OutcomeShare[simulation.OutcomeNonzero], 1e-9)
	assert.InDelta(t, 0.25, sum.OutcomeShare[simulation.OutcomeZero], 1e-9)

	a, ok := sum.Claim("A")
	require.True(t, ok)
	assert.InDelta(t, 0.5, a.ProbOpen, 1e-9)
	assert.InDelta(t, 0.5, a.ProbNonzero, 1e-9)
	assert.InDelta(t, 25, a.Payment.Mean, 1e-9)
	assert.Equal(t, claims.StatusOpen, a.ActualStatus)

	require.NotNil(t, sum.BackTest)
	assert.Equal(t, 1, sum.BackTest.Actuals.OpenCount)
	assert.InDelta(t, 100, sum.BackTest.Actuals.TotalPaid, 1e-9)
	// actual open count 1 equals both simulated counts
	assert.InDelta(t, 0.5, sum.BackTest.OpenCountRank, 1e-9)
	assert.InDelta(t, 0.5, sum.BackTest.TotalPaidRank, 1e-9)
}

func TestSummarize_RejectsMismatchedClaims(t *testing.T) {
	res := &simulation.Result{Claims: []core.ClaimID{"A"}}

	_, err := Summarize(res, []claims.Claim{{ClaimID: "B"}}, nil)
	assert.Error(t, err)

	_, err = Summarize(res, nil, nil)
	assert.Error(t, err)
}

func TestSummarize_NoBackTestWithoutActuals(t *testing.T) {
	cs := testkit.FixedClaims(evalDate, claims.StatusOpen, claims.StatusClosed)
	res, err := newSimulator(testkit.StubModels(0.5, 0.5, 100)).Run(context.Background(), cs, simulation.Config{Trials: 50, Seed: 4})
	require.NoError(t, err)

	sum, err := Summarize(res, cs, nil)
	require.NoError(t, err)
	assert.Nil(t, sum.BackTest)
	assert.Len(t, sum.Totals, 50)
	assert.Len(t, sum.ByClaim, 2)

	total := 0.0
	for _, share := range sum.OutcomeShare {
		total += share
	}
	assert.InDelta(t, 1, total, 1e-9)
}

func TestPercentileRank(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 0, PercentileRank(x, 0), 1e-9)
	assert.InDelta(t, 0.625, PercentileRank(x, 3), 1e-9)
	assert.InDelta(t, 1, PercentileRank(x, 10), 1e-9)
	assert.Zero(t, PercentileRank(nil, 1))
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{4, 1, 3, 2})
	assert.InDelta(t, 2.5, d.Mean, 1e-9)
	assert.InDelta(t, 1, d.Min, 1e-9)
	assert.InDelta(t, 4, d.Max, 1e-9)
	assert.Greater(t, d.StdDev, 0.0)
	assert.LessOrEqual(t, d.Percentiles.P50, d.Percentiles.P75)
	assert.LessOrEqual(t, d.Percentiles.P95, d.Percentiles.P99)

	assert.Equal(t, simulation.Distribution{}, Describe(nil))
}

func TestExpectedOutcome(t *testing.T) {
	cs := testkit.FixedClaims(evalDate, claims.StatusClosed, claims.StatusOpen)

	got, err := ExpectedOutcome(testkit.StubModels(0.2, 0.5, 100), cs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// closed today: only the reopened branch can pay
	assert.InDelta(t, 0.2, got[0].ProbOpen, 1e-12)
	assert.InDelta(t, 0.1, got[0].ProbNonzero, 1e-12)
	assert.InDelta(t, 10, got[0].Payment, 1e-9)

	assert.InDelta(t, 0.5, got[1].ProbNonzero, 1e-12)
	assert.InDelta(t, 50, got[1].Payment, 1e-9)
}
