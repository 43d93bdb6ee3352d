package gam

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"
)

const degree = 3

// minUnique is the fewest distinct values a smooth needs; below it the term
// falls back to a linear effect
const minUnique = degree + 1

// Smooth is a centered cubic B-spline basis for one predictor. The columns
// are centered on their training means and the last one is dropped, so the
// smooth sums to zero over the training data.
type Smooth struct {
	Name   string
	Knots  []float64
	Lo, Hi float64
	Means  []float64
	Linear bool
	Mean   float64
	SD     float64
}

// NewSmooth builds a basis of dimension k for x with interior knots at
// quantiles of the distinct values
func NewSmooth(name string, x []float64, k int) (*Smooth, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("smooth %s has no values", name)
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("smooth %s has non-finite values", name)
		}
	}

	uniq := distinct(x)
	s := &Smooth{Name: name, Lo: uniq[0], Hi: uniq[len(uniq)-1]}

	if len(uniq) < minUnique || k < minUnique {
		s.Linear = true
		s.Mean, _ = stats.Mean(x)
		s.SD, _ = stats.StandardDeviationPopulation(x)
		if s.SD == 0 {
			s.SD = 1
		}
		return s, nil
	}

	s.Knots = knotVector(uniq, k-degree-1)
	n := float64(len(x))
	s.Means = make([]float64, s.size())
	for _, v := range x {
		for j, b := range s.raw(v) {
			s.Means[j] += b / n
		}
	}
	return s, nil
}

// knotVector places interior knots at quantiles of the sorted distinct
// values and repeats the boundary knots degree+1 times
func knotVector(uniq []float64, interior int) []float64 {
	lo, hi := uniq[0], uniq[len(uniq)-1]
	knots := make([]float64, 0, interior+2*(degree+1))
	for i := 0; i <= degree; i++ {
		knots = append(knots, lo)
	}
	last := lo
	for i := 1; i <= interior; i++ {
		q, err := stats.Percentile(uniq, 100*float64(i)/float64(interior+1))
		if err != nil || q <= last || q >= hi {
			continue
		}
		knots = append(knots, q)
		last = q
	}
	for i := 0; i <= degree; i++ {
		knots = append(knots, hi)
	}
	return knots
}

func distinct(x []float64) []float64 {
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// size is the number of unconstrained basis functions
func (s *Smooth) size() int {
	return len(s.Knots) - degree - 1
}

// Columns is the number of model matrix columns the smooth contributes
func (s *Smooth) Columns() int {
	if s.Linear {
		return 1
	}
	return s.size() - 1
}

// raw evaluates every B-spline basis function at x by the Cox-de Boor
// recursion. x is clamped to the training range.
func (s *Smooth) raw(x float64) []float64 {
	x = math.Max(s.Lo, math.Min(s.Hi, x))
	t := s.Knots
	k := s.size()

	span := k - 1
	for i := degree; i < k; i++ {
		if x >= t[i] && x < t[i+1] {
			span = i
			break
		}
	}

	n := make([]float64, len(t)-1)
	n[span] = 1
	for d := 1; d <= degree; d++ {
		for i := 0; i < len(t)-1-d; i++ {
			var left, right float64
			if t[i+d] != t[i] {
				left = (x - t[i]) / (t[i+d] - t[i]) * n[i]
			}
			if t[i+d+1] != t[i+1] {
				right = (t[i+d+1] - x) / (t[i+d+1] - t[i+1]) * n[i+1]
			}
			n[i] = left + right
		}
	}
	return n[:k]
}

// Row evaluates the constrained columns at x
func (s *Smooth) Row(x float64) []float64 {
	if s.Linear {
		return []float64{(x - s.Mean) / s.SD}
	}
	b := s.raw(x)
	out := make([]float64, s.Columns())
	for j := range out {
		out[j] = b[j] - s.Means[j]
	}
	return out
}

// Penalty is the second-order difference penalty on the constrained
// coefficients. A linear term is unpenalized.
func (s *Smooth) Penalty() *mat.SymDense {
	p := s.Columns()
	pen := mat.NewSymDense(p, nil)
	if s.Linear {
		return pen
	}
	k := s.size()
	for r := 0; r+2 < k; r++ {
		// row r of the difference matrix is (1, -2, 1) at columns r..r+2;
		// the dropped last coefficient is fixed at zero
		d := make([]float64, p)
		for j, c := range []float64{1, -2, 1} {
			if r+j < p {
				d[r+j] = c
			}
		}
		pen.SymRankOne(pen, 1, mat.NewVecDense(p, d))
	}
	return pen
}
