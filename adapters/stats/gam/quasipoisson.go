// Package gam fits generalized additive models with a quasi-Poisson
// response and log link by penalized IRLS.
package gam

import (
	"fmt"
	"math"

	"claimsim/adapters/stats/linalg"
	"claimsim/domain/core"
	"claimsim/domain/model"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InterceptName labels the intercept row of a coefficient table
const InterceptName = "(Intercept)"

const etaMax = 700.0

// Column is one named predictor
type Column struct {
	Name   string
	Values []float64
}

// Data holds the response and the parametric and smooth predictors
type Data struct {
	Y          []float64
	Parametric []Column
	Smooth     []Column
}

func (d Data) validate() error {
	n := len(d.Y)
	if n == 0 {
		return fmt.Errorf("%w: no observations", core.ErrInsufficientData)
	}
	for i, y := range d.Y {
		if y < 0 || math.IsNaN(y) || math.IsInf(y, 0) {
			return fmt.Errorf("response %d is %v, want a non-negative number", i, y)
		}
	}
	for _, c := range append(append([]Column(nil), d.Parametric...), d.Smooth...) {
		if len(c.Values) != n {
			return fmt.Errorf("predictor %s has %d values, want %d", c.Name, len(c.Values), n)
		}
		for i, v := range c.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s row %d", core.ErrInvalidPredictor, c.Name, i)
			}
		}
	}
	return nil
}

// Options controls basis size, the solver and the smoothing search
type Options struct {
	BasisSize     int
	MaxIterations int
	Tolerance     float64
	// Grid is the set of multipliers tried for each smoothing parameter,
	// relative to the trace-balanced scale of its penalty
	Grid   []float64
	Passes int
}

// DefaultOptions returns an 8-function basis and a 10^-4..10^3 grid
func DefaultOptions() Options {
	grid := make([]float64, 0, 15)
	for e := -4.0; e <= 3.0; e += 0.5 {
		grid = append(grid, math.Pow(10, e))
	}
	return Options{BasisSize: 8, MaxIterations: 50, Tolerance: 1e-8, Grid: grid, Passes: 2}
}

// Model is a fitted quasi-Poisson GAM
type Model struct {
	Names      []string
	Coef       []float64
	StdErr     []float64
	Smooths    []*Smooth
	Lambda     []float64
	SmoothEDF  []float64
	EDF        float64
	GCV        float64
	Deviance   float64
	NullDev    float64
	Dispersion float64
	Iterations int
	Converged  bool
	N          int

	offsets []int
}

type design struct {
	x         *mat.Dense
	names     []string
	smooths   []*Smooth
	offsets   []int
	penalties []*mat.SymDense
}

func buildDesign(d Data, opts Options) (*design, error) {
	smooths := make([]*Smooth, len(d.Smooth))
	p := 1 + len(d.Parametric)
	offsets := make([]int, len(d.Smooth))
	for j, c := range d.Smooth {
		s, err := NewSmooth(c.Name, c.Values, opts.BasisSize)
		if err != nil {
			return nil, err
		}
		smooths[j] = s
		offsets[j] = p
		p += s.Columns()
	}

	n := len(d.Y)
	if n <= p {
		return nil, fmt.Errorf("%w: %d observations for %d coefficients", core.ErrInsufficientData, n, p)
	}

	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j, c := range d.Parametric {
			x.Set(i, 1+j, c.Values[i])
		}
		for j, s := range smooths {
			for k, v := range s.Row(d.Smooth[j].Values[i]) {
				x.Set(i, offsets[j]+k, v)
			}
		}
	}

	names := []string{InterceptName}
	for _, c := range d.Parametric {
		names = append(names, c.Name)
	}

	penalties := make([]*mat.SymDense, len(smooths))
	for j, s := range smooths {
		full := mat.NewSymDense(p, nil)
		block := s.Penalty()
		for a := 0; a < s.Columns(); a++ {
			for b := a; b < s.Columns(); b++ {
				full.SetSym(offsets[j]+a, offsets[j]+b, block.At(a, b))
			}
		}
		penalties[j] = full
	}

	return &design{x: x, names: names, smooths: smooths, offsets: offsets, penalties: penalties}, nil
}

// pirls is one penalized IRLS fit at fixed smoothing parameters
type pirls struct {
	beta       *mat.VecDense
	mu         []float64
	gram       *mat.SymDense
	inv        *mat.SymDense
	edf        []float64
	deviance   float64
	iterations int
	converged  bool
}

func quasiPoissonDeviance(y, mu []float64) float64 {
	dev := 0.0
	for i := range y {
		if y[i] > 0 {
			dev += 2 * (y[i]*math.Log(y[i]/mu[i]) - (y[i] - mu[i]))
		} else {
			dev += 2 * mu[i]
		}
	}
	return dev
}

func startingMean(y []float64) []float64 {
	mean, _ := stats.Mean(y)
	mu := make([]float64, len(y))
	for i, v := range y {
		mu[i] = v + mean/10
		if mu[i] <= 0 {
			mu[i] = 1e-3
		}
	}
	return mu
}

func (dz *design) penalty(lambda []float64) *mat.SymDense {
	p := dz.x.RawMatrix().Cols
	total := mat.NewSymDense(p, nil)
	for j, s := range dz.penalties {
		var scaled mat.SymDense
		scaled.ScaleSym(lambda[j], s)
		total.AddSym(total, &scaled)
	}
	return total
}

func (dz *design) fit(y []float64, lambda []float64, opts Options) (*pirls, error) {
	n, _ := dz.x.Dims()
	pen := dz.penalty(lambda)

	mu := startingMean(y)
	eta := make([]float64, n)
	for i := range mu {
		eta[i] = math.Log(mu[i])
	}
	w := make([]float64, n)
	z := make([]float64, n)
	dev := quasiPoissonDeviance(y, mu)

	out := &pirls{}
	var (
		sol  *linalg.Solution
		gram *mat.SymDense
	)
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		for i := range mu {
			w[i] = mu[i]
			z[i] = eta[i] + (y[i]-mu[i])/mu[i]
		}
		var rhs *mat.VecDense
		gram, rhs = linalg.WeightedGram(dz.x, w, z)

		var err error
		sol, err = linalg.Solve(gram, rhs, pen)
		if err != nil {
			return nil, err
		}
		eta = linalg.MulVec(dz.x, sol.Beta)
		for i := range eta {
			eta[i] = math.Min(eta[i], etaMax)
			mu[i] = math.Max(math.Exp(eta[i]), 1e-10)
		}

		newDev := quasiPoissonDeviance(y, mu)
		if math.IsNaN(newDev) || math.IsInf(newDev, 0) {
			return nil, fmt.Errorf("%w: deviance diverged at iteration %d", core.ErrNotConverged, iter)
		}
		out.iterations = iter
		if math.Abs(newDev-dev)/(math.Abs(newDev)+0.1) < opts.Tolerance {
			dev = newDev
			out.converged = true
			break
		}
		dev = newDev
	}

	// Influence at the final weights
	for i := range mu {
		w[i] = mu[i]
	}
	gram, _ = linalg.WeightedGram(dz.x, w, z)
	a := mat.NewSymDense(gram.SymmetricDim(), nil)
	a.AddSym(gram, pen)
	inv, err := linalg.InverseSym(a)
	if err != nil {
		return nil, err
	}
	var f mat.Dense
	f.Mul(inv, gram)
	p := gram.SymmetricDim()
	out.edf = make([]float64, p)
	for j := 0; j < p; j++ {
		out.edf[j] = f.At(j, j)
	}

	out.beta = sol.Beta
	out.mu = mu
	out.gram = gram
	out.inv = inv
	out.deviance = dev
	return out, nil
}

func sum(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}

func gcv(n int, deviance, edf float64) float64 {
	rest := float64(n) - edf
	if rest <= 0 {
		return math.Inf(1)
	}
	return float64(n) * deviance / (rest * rest)
}

// Fit fits log E[y] = β0 + Σ βj·parametric_j + Σ s_k(smooth_k). Each
// smoothing parameter is chosen by coordinate search over opts.Grid,
// minimizing GCV.
func Fit(d Data, opts Options) (*Model, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if opts.BasisSize == 0 {
		opts = DefaultOptions()
	}

	dz, err := buildDesign(d, opts)
	if err != nil {
		return nil, err
	}
	n := len(d.Y)

	scale, err := dz.penaltyScale(d.Y)
	if err != nil {
		return nil, err
	}

	lambda := make([]float64, len(dz.smooths))
	copy(lambda, scale)

	best, err := dz.fit(d.Y, lambda, opts)
	if err != nil {
		return nil, err
	}
	bestScore := gcv(n, best.deviance, sum(best.edf))

	for pass := 0; pass < opts.Passes; pass++ {
		for j := range lambda {
			if dz.smooths[j].Linear {
				continue
			}
			for _, g := range opts.Grid {
				trial := append([]float64(nil), lambda...)
				trial[j] = scale[j] * g
				f, err := dz.fit(d.Y, trial, opts)
				if err != nil {
					continue
				}
				if score := gcv(n, f.deviance, sum(f.edf)); score < bestScore {
					best, bestScore, lambda = f, score, trial
				}
			}
		}
	}

	return dz.model(d.Y, best, lambda, bestScore), nil
}

// penaltyScale balances each penalty against its block of XᵀWX at the
// starting weights, so one grid serves every smooth
func (dz *design) penaltyScale(y []float64) ([]float64, error) {
	mu := startingMean(y)
	z := make([]float64, len(y))
	gram, _ := linalg.WeightedGram(dz.x, mu, z)

	scale := make([]float64, len(dz.smooths))
	for j, s := range dz.smooths {
		var trG, trP float64
		for k := 0; k < s.Columns(); k++ {
			c := dz.offsets[j] + k
			trG += gram.At(c, c)
			trP += dz.penalties[j].At(c, c)
		}
		if trP == 0 {
			continue
		}
		if trG <= 0 {
			return nil, fmt.Errorf("%w: smooth %s has an empty basis", core.ErrSingularFit, s.Name)
		}
		scale[j] = trG / trP
	}
	return scale, nil
}

func (dz *design) model(y []float64, f *pirls, lambda []float64, score float64) *Model {
	n := len(y)
	edf := sum(f.edf)

	pearson := 0.0
	for i := range y {
		r := y[i] - f.mu[i]
		pearson += r * r / f.mu[i]
	}
	phi := pearson / math.Max(float64(n)-edf, 1)

	p := f.beta.Len()
	m := &Model{
		Names:      dz.names,
		Coef:       make([]float64, p),
		StdErr:     make([]float64, p),
		Smooths:    dz.smooths,
		Lambda:     lambda,
		SmoothEDF:  make([]float64, len(dz.smooths)),
		EDF:        edf,
		GCV:        score,
		Deviance:   f.deviance,
		NullDev:    nullDeviance(y),
		Dispersion: phi,
		Iterations: f.iterations,
		Converged:  f.converged,
		N:          n,
		offsets:    dz.offsets,
	}
	for j := 0; j < p; j++ {
		m.Coef[j] = f.beta.AtVec(j)
		m.StdErr[j] = math.Sqrt(math.Max(0, phi*f.inv.At(j, j)))
	}
	for j, s := range dz.smooths {
		for k := 0; k < s.Columns(); k++ {
			m.SmoothEDF[j] += f.edf[dz.offsets[j]+k]
		}
	}
	return m
}

func nullDeviance(y []float64) float64 {
	mean, _ := stats.Mean(y)
	mu := make([]float64, len(y))
	for i := range mu {
		mu[i] = math.Max(mean, 1e-10)
	}
	return quasiPoissonDeviance(y, mu)
}

// Predict returns the expected response for one observation. Smooth values
// outside the training range are clamped to it.
func (m *Model) Predict(parametric, smooth []float64) (float64, error) {
	if len(parametric) != len(m.Names)-1 || len(smooth) != len(m.Smooths) {
		return 0, fmt.Errorf("predict takes %d parametric and %d smooth values, got %d and %d",
			len(m.Names)-1, len(m.Smooths), len(parametric), len(smooth))
	}
	eta := m.Coef[0]
	for j, v := range parametric {
		eta += m.Coef[1+j] * v
	}
	for j, s := range m.Smooths {
		for k, v := range s.Row(smooth[j]) {
			eta += m.Coef[m.offsets[j]+k] * v
		}
	}
	return math.Exp(math.Min(eta, etaMax)), nil
}

// Coefficients returns the parametric coefficient table with t tests on
// n - EDF degrees of freedom
func (m *Model) Coefficients() []model.Coefficient {
	df := math.Max(float64(m.N)-m.EDF, 1)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	out := make([]model.Coefficient, len(m.Names))
	for j, name := range m.Names {
		c := model.Coefficient{Term: name, Estimate: m.Coef[j], StdError: m.StdErr[j], PValue: 1}
		if m.StdErr[j] > 0 {
			c.ZValue = m.Coef[j] / m.StdErr[j]
			c.PValue = 2 * t.Survival(math.Abs(c.ZValue))
		}
		out[j] = c
	}
	return out
}

// SmoothTerms describes each smooth for reporting
func (m *Model) SmoothTerms() []model.SmoothTerm {
	out := make([]model.SmoothTerm, len(m.Smooths))
	for j, s := range m.Smooths {
		out[j] = model.SmoothTerm{
			Term:   "s(" + s.Name + ")",
			Basis:  s.Columns(),
			Lambda: m.Lambda[j],
			EDF:    m.SmoothEDF[j],
		}
	}
	return out
}
