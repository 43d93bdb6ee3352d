package gam

import (
	"math"
	"math/rand/v2"
	"testing"

	"claimsim/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestSmooth_PartitionOfUnity(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		x[i] = float64(i) * 0.5
	}
	s, err := NewSmooth("x", x, 8)
	require.NoError(t, err)
	require.False(t, s.Linear)
	assert.Equal(t, 8, s.size())
	assert.Equal(t, 7, s.Columns())

	for _, v := range []float64{0, 3.3, 50, 99.5} {
		b := s.raw(v)
		total := 0.0
		for _, bj := range b {
			assert.GreaterOrEqual(t, bj, -1e-12)
			total += bj
		}
		assert.InDelta(t, 1, total, 1e-9, "x=%v", v)
	}

	// Centered columns average to zero over the training data
	sums := make([]float64, s.Columns())
	for _, v := range x {
		for j, c := range s.Row(v) {
			sums[j] += c
		}
	}
	for _, total := range sums {
		assert.InDelta(t, 0, total, 1e-9)
	}
}

func TestSmooth_ClampsOutsideRange(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s, err := NewSmooth("x", x, 6)
	require.NoError(t, err)

	assert.Equal(t, s.Row(10), s.Row(1e6))
	assert.Equal(t, s.Row(1), s.Row(-50))
}

func TestSmooth_LinearFallback(t *testing.T) {
	s, err := NewSmooth("flag", []float64{0, 1, 0, 1, 2}, 8)
	require.NoError(t, err)

	assert.True(t, s.Linear)
	assert.Equal(t, 1, s.Columns())
	assert.Zero(t, s.Penalty().At(0, 0))
}

func TestSmooth_PenaltyNullSpace(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = float64(i)
	}
	s, err := NewSmooth("x", x, 8)
	require.NoError(t, err)

	// Coefficients on a line through the dropped (zero) last coefficient
	// have no second differences
	p := s.Columns()
	beta := make([]float64, p)
	for j := range beta {
		beta[j] = float64(p - j)
	}
	pen := s.Penalty()
	quad := 0.0
	for a := 0; a < p; a++ {
		for b := 0; b < p; b++ {
			quad += beta[a] * pen.At(a, b) * beta[b]
		}
	}
	assert.InDelta(t, 0, quad, 1e-9)
}

func simulated(n int, seed uint64, overdispersed bool) (Data, func(flag, x float64) float64) {
	rng := rand.New(rand.NewPCG(seed, 11))
	truth := func(flag, x float64) float64 {
		return math.Exp(2 + 0.5*flag + math.Sin(x))
	}
	d := Data{
		Parametric: []Column{{Name: "flag"}},
		Smooth:     []Column{{Name: "x"}},
	}
	for i := 0; i < n; i++ {
		flag := float64(rng.IntN(2))
		x := rng.Float64() * 6
		mu := truth(flag, x)
		if overdispersed {
			mu = distuv.Gamma{Alpha: 2, Beta: 2 / mu, Src: rng}.Rand()
		}
		y := distuv.Poisson{Lambda: mu, Src: rng}.Rand()
		d.Y = append(d.Y, y)
		d.Parametric[0].Values = append(d.Parametric[0].Values, flag)
		d.Smooth[0].Values = append(d.Smooth[0].Values, x)
	}
	return d, truth
}

func TestFit_RecoversSmoothMean(t *testing.T) {
	d, truth := simulated(3000, 1, false)

	m, err := Fit(d, DefaultOptions())
	require.NoError(t, err)

	assert.True(t, m.Converged)
	assert.InDelta(t, 0.5, m.Coef[1], 0.08)
	for _, x := range []float64{0.5, 1.5, 3, 4.5, 5.5} {
		for _, flag := range []float64{0, 1} {
			got, err := m.Predict([]float64{flag}, []float64{x})
			require.NoError(t, err)
			want := truth(flag, x)
			assert.InEpsilon(t, want, got, 0.12, "flag=%v x=%v", flag, x)
		}
	}

	assert.InDelta(t, 1, m.Dispersion, 0.15)
	assert.Greater(t, m.EDF, 3.0)
	assert.Less(t, m.EDF, float64(1+1+m.Smooths[0].Columns())+1e-9)
	assert.Less(t, m.Deviance, m.NullDev)
	assert.Greater(t, m.GCV, 0.0)

	terms := m.SmoothTerms()
	require.Len(t, terms, 1)
	assert.Equal(t, "s(x)", terms[0].Term)
	assert.Greater(t, terms[0].EDF, 1.5)

	coefs := m.Coefficients()
	require.Len(t, coefs, 2)
	assert.Equal(t, InterceptName, coefs[0].Term)
	assert.Less(t, coefs[1].PValue, 1e-6)
}

func TestFit_OverdispersionRaisesDispersion(t *testing.T) {
	d, _ := simulated(2000, 2, true)

	m, err := Fit(d, DefaultOptions())
	require.NoError(t, err)
	assert.Greater(t, m.Dispersion, 2.0)
}

func TestFit_RejectsBadInput(t *testing.T) {
	_, err := Fit(Data{}, DefaultOptions())
	assert.ErrorIs(t, err, core.ErrInsufficientData)

	_, err = Fit(Data{Y: []float64{-1}}, DefaultOptions())
	assert.Error(t, err)

	_, err = Fit(Data{Y: []float64{1, 2}, Smooth: []Column{{Name: "x", Values: []float64{1}}}}, DefaultOptions())
	assert.Error(t, err)
}

func TestPredict_ChecksArity(t *testing.T) {
	d, _ := simulated(500, 3, false)
	m, err := Fit(d, DefaultOptions())
	require.NoError(t, err)

	_, err = m.Predict(nil, []float64{1})
	assert.Error(t, err)
}
