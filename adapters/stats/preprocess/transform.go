package preprocess

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/optimize"
)

const (
	lambdaMin = -5.0
	lambdaMax = 5.0
)

// YeoJohnson applies the Yeo-Johnson power transform. Unlike Box-Cox it is
// defined for zero and negative values, which incremental payments have.
func YeoJohnson(x, lambda float64) float64 {
	if x >= 0 {
		if math.Abs(lambda) < 1e-12 {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if math.Abs(lambda-2) < 1e-12 {
		return -math.Log1p(-x)
	}
	return -(math.Pow(1-x, 2-lambda) - 1) / (2 - lambda)
}

// InverseYeoJohnson undoes YeoJohnson for the same lambda
func InverseYeoJohnson(y, lambda float64) float64 {
	if y >= 0 {
		if math.Abs(lambda) < 1e-12 {
			return math.Expm1(y)
		}
		return math.Pow(y*lambda+1, 1/lambda) - 1
	}
	if math.Abs(lambda-2) < 1e-12 {
		return -math.Expm1(-y)
	}
	return 1 - math.Pow(1-(2-lambda)*y, 1/(2-lambda))
}

// yeoJohnsonNegLogLik is the negative profile log-likelihood of lambda under
// a normal model for the transformed values.
func yeoJohnsonNegLogLik(x []float64, lambda float64) float64 {
	if lambda < lambdaMin || lambda > lambdaMax {
		return math.MaxFloat64
	}
	n := float64(len(x))
	t := make([]float64, len(x))
	jacobian := 0.0
	for i, v := range x {
		t[i] = YeoJohnson(v, lambda)
		if math.IsInf(t[i], 0) || math.IsNaN(t[i]) {
			return math.MaxFloat64
		}
		jacobian += math.Copysign(math.Log1p(math.Abs(v)), v)
	}
	variance, err := stats.PopulationVariance(t)
	if err != nil || variance <= 0 {
		return math.MaxFloat64
	}
	return n/2*math.Log(variance) - (lambda-1)*jacobian
}

// EstimateLambda finds the maximum likelihood Yeo-Johnson lambda
func EstimateLambda(x []float64) (float64, error) {
	if len(x) < 3 {
		return 1, fmt.Errorf("need at least 3 values to estimate lambda, got %d", len(x))
	}
	problem := optimize.Problem{
		Func: func(l []float64) float64 { return yeoJohnsonNegLogLik(x, l[0]) },
	}
	result, err := optimize.Minimize(problem, []float64{1}, nil, &optimize.NelderMead{SimplexSize: 0.5})
	if err != nil {
		return 1, fmt.Errorf("lambda search failed: %w", err)
	}
	return math.Max(lambdaMin, math.Min(lambdaMax, result.X[0])), nil
}

// PowerScaler is the fitted "YeoJohnson, center, scale" preprocessing of
// one continuous predictor
type PowerScaler struct {
	Name   string  `json:"name"`
	Lambda float64 `json:"lambda"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
	// Constant marks a predictor with no variance; it maps to 0
	Constant bool `json:"constant"`
}

// FitPowerScaler estimates lambda, then the mean and standard deviation of
// the transformed values
func FitPowerScaler(name string, x []float64) (PowerScaler, error) {
	ps := PowerScaler{Name: name, Lambda: 1, Scale: 1}
	if len(x) == 0 {
		return ps, fmt.Errorf("predictor %s has no values", name)
	}

	spread, _ := stats.PopulationVariance(x)
	if len(x) < 3 || spread == 0 {
		ps.Constant = true
		ps.Center, _ = stats.Mean(x)
		return ps, nil
	}

	lambda, err := EstimateLambda(x)
	if err != nil {
		return ps, fmt.Errorf("predictor %s: %w", name, err)
	}
	ps.Lambda = lambda

	t := make([]float64, len(x))
	for i, v := range x {
		t[i] = YeoJohnson(v, lambda)
	}
	ps.Center, _ = stats.Mean(t)
	sd, _ := stats.StandardDeviationSample(t)
	if sd == 0 || math.IsNaN(sd) {
		ps.Constant = true
		return ps, nil
	}
	ps.Scale = sd
	return ps, nil
}

// Apply maps a raw value to the model scale
func (p PowerScaler) Apply(x float64) float64 {
	if p.Constant {
		return 0
	}
	return (YeoJohnson(x, p.Lambda) - p.Center) / p.Scale
}

// ApplyAll maps a column of raw values
func (p PowerScaler) ApplyAll(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = p.Apply(v)
	}
	return out
}
