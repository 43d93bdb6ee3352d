package glm

import (
	"fmt"
	"math"

	"claimsim/adapters/stats/linalg"
	"claimsim/domain/core"
	"claimsim/domain/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InterceptName labels the intercept row of a coefficient table
const InterceptName = "(Intercept)"

const (
	probFloor = 1e-10
	etaBound  = 30.0
)

// Options controls the IRLS solver
type Options struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions matches the usual glm.fit control settings
func DefaultOptions() Options {
	return Options{MaxIterations: 25, Tolerance: 1e-8}
}

// Design is a feature matrix without the intercept column. Rows are
// observations; Names label the columns.
type Design struct {
	Names []string
	Rows  [][]float64
	Y     []float64
}

// Validate checks the design dimensions and the binary response
func (d Design) Validate() error {
	if len(d.Rows) != len(d.Y) {
		return fmt.Errorf("design has %d rows but %d responses", len(d.Rows), len(d.Y))
	}
	if len(d.Rows) == 0 {
		return fmt.Errorf("%w: empty design", core.ErrInsufficientData)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Names) {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(row), len(d.Names))
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d", core.ErrInvalidPredictor, i)
			}
		}
	}
	for i, y := range d.Y {
		if y != 0 && y != 1 {
			return fmt.Errorf("response %d is %v, want 0 or 1", i, y)
		}
	}
	return nil
}

// Subset returns the design restricted to the given rows
func (d Design) Subset(rows []int) Design {
	out := Design{Names: d.Names, Rows: make([][]float64, len(rows)), Y: make([]float64, len(rows))}
	for i, r := range rows {
		out.Rows[i] = d.Rows[r]
		out.Y[i] = d.Y[r]
	}
	return out
}

// Logistic is a fitted binomial GLM with logit link. Columns indexes the
// design columns the model uses, so Predict takes full design rows.
type Logistic struct {
	Names        []string
	Columns      []int
	Coef         []float64
	StdErr       []float64
	Deviance     float64
	NullDeviance float64
	AIC          float64
	Iterations   int
	Converged    bool
	N            int
}

// matrix builds the model matrix with a leading intercept column
func matrix(d Design, cols []int) *mat.Dense {
	n := len(d.Rows)
	x := mat.NewDense(n, len(cols)+1, nil)
	for i, row := range d.Rows {
		x.Set(i, 0, 1)
		for j, c := range cols {
			x.Set(i, j+1, row[c])
		}
	}
	return x
}

func logistic(eta float64) float64 {
	p := 1 / (1 + math.Exp(-eta))
	return math.Min(1-probFloor, math.Max(probFloor, p))
}

func binomialDeviance(y, mu []float64) float64 {
	dev := 0.0
	for i := range y {
		if y[i] == 1 {
			dev -= 2 * math.Log(mu[i])
		} else {
			dev -= 2 * math.Log(1-mu[i])
		}
	}
	return dev
}

// FitLogistic fits the logistic regression of d.Y on the selected columns by
// iteratively reweighted least squares.
func FitLogistic(d Design, cols []int, opts Options) (*Logistic, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if opts.MaxIterations <= 0 {
		opts = DefaultOptions()
	}

	x := matrix(d, cols)
	n, p := x.Dims()
	y := d.Y

	mu := make([]float64, n)
	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)
	for i := range mu {
		// glm's binomial starting values
		mu[i] = (y[i] + 0.5) / 2
		eta[i] = math.Log(mu[i] / (1 - mu[i]))
	}

	dev := binomialDeviance(y, mu)
	var sol *linalg.Solution
	fit := &Logistic{Columns: append([]int(nil), cols...), N: n}

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		for i := range mu {
			w[i] = mu[i] * (1 - mu[i])
			z[i] = eta[i] + (y[i]-mu[i])/w[i]
		}
		gram, rhs := linalg.WeightedGram(x, w, z)

		var err error
		sol, err = linalg.Solve(gram, rhs, nil)
		if err != nil {
			return nil, err
		}

		eta = linalg.MulVec(x, sol.Beta)
		for i := range eta {
			eta[i] = math.Max(-etaBound, math.Min(etaBound, eta[i]))
			mu[i] = logistic(eta[i])
		}

		newDev := binomialDeviance(y, mu)
		if math.IsNaN(newDev) || math.IsInf(newDev, 0) {
			return nil, fmt.Errorf("%w: deviance diverged at iteration %d", core.ErrNotConverged, iter)
		}
		fit.Iterations = iter
		if math.Abs(newDev-dev)/(math.Abs(newDev)+0.1) < opts.Tolerance {
			dev = newDev
			fit.Converged = true
			break
		}
		dev = newDev
	}

	// Standard errors come from the information matrix at the final weights
	for i := range mu {
		w[i] = mu[i] * (1 - mu[i])
	}
	gram, _ := linalg.WeightedGram(x, w, z)
	cov, err := linalg.InverseSym(gram)
	if err != nil {
		return nil, err
	}

	fit.Names = make([]string, p)
	fit.Names[0] = InterceptName
	for j, c := range cols {
		fit.Names[j+1] = d.Names[c]
	}
	fit.Coef = make([]float64, p)
	fit.StdErr = make([]float64, p)
	for j := 0; j < p; j++ {
		fit.Coef[j] = sol.Beta.AtVec(j)
		fit.StdErr[j] = math.Sqrt(math.Max(0, cov.At(j, j)))
	}

	fit.Deviance = dev
	fit.NullDeviance = nullDeviance(y)
	fit.AIC = dev + 2*float64(p)
	return fit, nil
}

func nullDeviance(y []float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	mean = math.Min(1-probFloor, math.Max(probFloor, mean))
	mu := make([]float64, len(y))
	for i := range mu {
		mu[i] = mean
	}
	return binomialDeviance(y, mu)
}

// Predict returns P(y=1) for a full design row
func (m *Logistic) Predict(row []float64) float64 {
	eta := m.Coef[0]
	for j, c := range m.Columns {
		eta += m.Coef[j+1] * row[c]
	}
	return 1 / (1 + math.Exp(-eta))
}

// Coefficients returns the Wald coefficient table
func (m *Logistic) Coefficients() []model.Coefficient {
	out := make([]model.Coefficient, len(m.Coef))
	for j := range m.Coef {
		c := model.Coefficient{Term: m.Names[j], Estimate: m.Coef[j], StdError: m.StdErr[j]}
		if m.StdErr[j] > 0 {
			c.ZValue = m.Coef[j] / m.StdErr[j]
			c.PValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(c.ZValue)))
		} else {
			c.PValue = 1
		}
		out[j] = c
	}
	return out
}
