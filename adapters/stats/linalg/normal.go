// Package linalg holds the weighted least squares pieces shared by the
// IRLS solvers.
package linalg

import (
	"fmt"

	"claimsim/domain/core"

	"gonum.org/v1/gonum/mat"
)

// WeightedGram returns XᵀWX and XᵀWz for a diagonal weight vector w
func WeightedGram(x *mat.Dense, w, z []float64) (*mat.SymDense, *mat.VecDense) {
	n, p := x.Dims()
	gram := mat.NewSymDense(p, nil)
	rhs := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		if w[i] == 0 {
			continue
		}
		row := mat.NewVecDense(p, x.RawRowView(i))
		gram.SymRankOne(gram, w[i], row)
		rhs.AddScaledVec(rhs, w[i]*z[i], row)
	}
	return gram, rhs
}

// Solution is a solved (penalized) normal system
type Solution struct {
	Beta *mat.VecDense
	Chol *mat.Cholesky
}

// Solve solves (gram + penalty) β = rhs. penalty may be nil.
func Solve(gram *mat.SymDense, rhs *mat.VecDense, penalty *mat.SymDense) (*Solution, error) {
	a := gram
	if penalty != nil {
		a = mat.NewSymDense(gram.SymmetricDim(), nil)
		a.AddSym(gram, penalty)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: normal equations are not positive definite", core.ErrSingularFit)
	}

	beta := mat.NewVecDense(a.SymmetricDim(), nil)
	if err := chol.SolveVecTo(beta, rhs); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSingularFit, err)
	}
	return &Solution{Beta: beta, Chol: &chol}, nil
}

// Inverse returns the inverse of the factorized system matrix
func (s *Solution) Inverse() (*mat.SymDense, error) {
	var inv mat.SymDense
	if err := s.Chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSingularFit, err)
	}
	return &inv, nil
}

// InverseSym inverts a symmetric positive definite matrix
func InverseSym(a *mat.SymDense) (*mat.SymDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, fmt.Errorf("%w: matrix is not positive definite", core.ErrSingularFit)
	}
	return (&Solution{Chol: &chol}).Inverse()
}

// MulVec returns Xβ
func MulVec(x *mat.Dense, beta *mat.VecDense) []float64 {
	n, _ := x.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(x, beta)
	return out.RawVector().Data
}
