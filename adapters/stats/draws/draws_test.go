package draws

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
)

func TestNegBinForMean(t *testing.T) {
	for _, mu := range []float64{0.5, 1, 250, 12000} {
		nb := NegBinForMean(mu)
		assert.InEpsilon(t, math.Pow(mu, 0.2), nb.Size, 1e-12)
		assert.InEpsilon(t, mu, nb.Mean(), 1e-9)
	}
}

func TestNegativeBinomialMean_MatchesMean(t *testing.T) {
	tests := []struct {
		mu  float64
		tol float64
	}{
		{mu: 3, tol: 0.05},
		{mu: 800, tol: 0.08},
		{mu: 25000, tol: 0.1},
	}
	for _, tt := range tests {
		src := rand.NewPCG(42, uint64(tt.mu))
		x := make([]float64, 40000)
		for i := range x {
			x[i] = NegativeBinomialMean(tt.mu, src)
			assert.GreaterOrEqual(t, x[i], 0.0)
			assert.Equal(t, math.Trunc(x[i]), x[i])
		}
		mean, _ := stats.Mean(x)
		assert.InEpsilon(t, tt.mu, mean, tt.tol, "mu=%v", tt.mu)
	}
}

func TestNegativeBinomialMean_Degenerate(t *testing.T) {
	src := rand.NewPCG(1, 1)
	assert.Zero(t, NegativeBinomialMean(0, src))
	assert.Zero(t, NegativeBinomialMean(-5, src))
	assert.Zero(t, NegativeBinomialMean(math.NaN(), src))
	assert.Zero(t, NegativeBinomialMean(math.Inf(1), src))
}

func TestBernoulli(t *testing.T) {
	src := rand.NewPCG(7, 7)
	hits := 0
	for i := 0; i < 20000; i++ {
		if Bernoulli(0.3, src) {
			hits++
		}
	}
	assert.InDelta(t, 0.3, float64(hits)/20000, 0.02)

	assert.False(t, Bernoulli(0, src))
	assert.True(t, Bernoulli(1, src))
	assert.False(t, Bernoulli(math.NaN(), src))
}

func TestDeterministicStream(t *testing.T) {
	a, b := rand.NewPCG(9, 3), rand.NewPCG(9, 3)
	for i := 0; i < 100; i++ {
		assert.Equal(t, NegativeBinomialMean(500, a), NegativeBinomialMean(500, b))
	}
}
