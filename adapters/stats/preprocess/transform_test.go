package preprocess

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYeoJohnson_RoundTrip(t *testing.T) {
	values := []float64{-250, -3.5, -1, 0, 0.25, 1, 12, 5000}
	lambdas := []float64{-1, 0, 0.5, 1, 2, 3}

	for _, lambda := range lambdas {
		for _, x := range values {
			y := YeoJohnson(x, lambda)
			assert.InDelta(t, x, InverseYeoJohnson(y, lambda), 1e-6*math.Max(1, math.Abs(x)),
				"lambda=%v x=%v", lambda, x)
		}
	}
}

func TestYeoJohnson_IdentityAtOne(t *testing.T) {
	for _, x := range []float64{-10, -1, 0, 3, 100} {
		assert.InDelta(t, x, YeoJohnson(x, 1), 1e-12)
	}
}

func TestEstimateLambda_LogNormalData(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	x := make([]float64, 2000)
	for i := range x {
		// log1p(x) is normal, so lambda should land near zero
		x[i] = math.Expm1(3 + 0.8*rng.NormFloat64())
	}

	lambda, err := EstimateLambda(x)
	require.NoError(t, err)
	assert.InDelta(t, 0, lambda, 0.15)
}

func TestFitPowerScaler_Standardizes(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	x := make([]float64, 500)
	for i := range x {
		x[i] = 1000 * rng.ExpFloat64()
	}

	ps, err := FitPowerScaler("case_reserve", x)
	require.NoError(t, err)
	require.False(t, ps.Constant)

	scaled := ps.ApplyAll(x)
	mean, _ := stats.Mean(scaled)
	sd, _ := stats.StandardDeviationSample(scaled)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, sd, 1e-9)
}

func TestFitPowerScaler_ConstantColumn(t *testing.T) {
	ps, err := FitPowerScaler("paid", []float64{0, 0, 0, 0})
	require.NoError(t, err)
	assert.True(t, ps.Constant)
	assert.Equal(t, 0.0, ps.Apply(123))

	_, err = FitPowerScaler("empty", nil)
	assert.Error(t, err)
}
