// Package draws holds the random variates the simulator needs.
package draws

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SizeExponent sets the negative binomial size as mean^SizeExponent
const SizeExponent = 0.2

// Bernoulli returns true with probability p
func Bernoulli(p float64, src rand.Source) bool {
	return distuv.Bernoulli{P: clampProb(p), Src: src}.Rand() == 1
}

func clampProb(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}

// NegBin holds the size/prob parameterization of a negative binomial
type NegBin struct {
	Size float64
	Prob float64
}

// NegBinForMean returns parameters whose mean is mu, with size mu^(1/5)
func NegBinForMean(mu float64) NegBin {
	size := math.Pow(mu, SizeExponent)
	return NegBin{Size: size, Prob: size / (size + mu)}
}

// Mean is size·(1-prob)/prob
func (nb NegBin) Mean() float64 {
	return nb.Size * (1 - nb.Prob) / nb.Prob
}

// Variance is mean/prob
func (nb NegBin) Variance() float64 {
	return nb.Mean() / nb.Prob
}

// Rand draws a count as a gamma-Poisson mixture
func (nb NegBin) Rand(src rand.Source) float64 {
	if nb.Prob >= 1 || nb.Size <= 0 {
		return 0
	}
	rate := nb.Prob / (1 - nb.Prob)
	lambda := distuv.Gamma{Alpha: nb.Size, Beta: rate, Src: src}.Rand()
	if lambda <= 0 {
		return 0
	}
	return distuv.Poisson{Lambda: lambda, Src: src}.Rand()
}

// NegativeBinomialMean draws a non-negative integer payment with mean mu.
// A non-positive or non-finite mean draws zero.
func NegativeBinomialMean(mu float64, src rand.Source) float64 {
	if !(mu > 0) || math.IsInf(mu, 0) {
		return 0
	}
	return NegBinForMean(mu).Rand(src)
}
