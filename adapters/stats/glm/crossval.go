package glm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"claimsim/domain/model"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// Scorer returns P(y=1) for a row of the cross-validated data
type Scorer func(row int) (float64, error)

// FoldFitter trains on the given rows and returns a scorer for held-out rows
type FoldFitter func(ctx context.Context, train []int) (Scorer, error)

// CVOptions controls repeated k-fold cross-validation
type CVOptions struct {
	Folds   int
	Repeats int
	Seed    uint64
	Workers int
}

// DefaultCVOptions returns 5 folds repeated 3 times
func DefaultCVOptions() CVOptions {
	return CVOptions{Folds: 5, Repeats: 3, Seed: 1}
}

type foldScore struct {
	accuracy float64
	kappa    float64
	logLoss  float64
}

// CrossValidate runs repeated stratified k-fold cross-validation of a binary
// classifier. The fitter is called once per resample so any preprocessing or
// term selection it does is re-estimated on every training split.
func CrossValidate(ctx context.Context, y []float64, fit FoldFitter, opts CVOptions) (model.CVMetrics, error) {
	if opts.Folds < 2 {
		return model.CVMetrics{}, fmt.Errorf("cross-validation needs at least 2 folds, got %d", opts.Folds)
	}
	if opts.Repeats < 1 {
		opts.Repeats = 1
	}
	if len(y) < opts.Folds {
		return model.CVMetrics{}, fmt.Errorf("cross-validation needs at least %d rows, got %d", opts.Folds, len(y))
	}

	resamples := opts.Folds * opts.Repeats
	scores := make([]foldScore, resamples)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for r := 0; r < opts.Repeats; r++ {
		assignment := stratifiedFolds(y, opts.Folds, rand.New(rand.NewPCG(opts.Seed, uint64(r))))
		for k := 0; k < opts.Folds; k++ {
			idx := r*opts.Folds + k
			var train, test []int
			for row, fold := range assignment {
				if fold == k {
					test = append(test, row)
				} else {
					train = append(train, row)
				}
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				score, err := fit(gctx, train)
				if err != nil {
					return fmt.Errorf("repeat %d fold %d: %w", r+1, k+1, err)
				}
				s, err := scoreFold(y, test, score)
				if err != nil {
					return fmt.Errorf("repeat %d fold %d: %w", r+1, k+1, err)
				}
				scores[idx] = s
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return model.CVMetrics{}, err
	}

	acc := make([]float64, resamples)
	kap := make([]float64, resamples)
	ll := make([]float64, resamples)
	for i, s := range scores {
		acc[i], kap[i], ll[i] = s.accuracy, s.kappa, s.logLoss
	}

	m := model.CVMetrics{Folds: opts.Folds, Repeats: opts.Repeats, Resamples: resamples}
	m.Accuracy, _ = stats.Mean(acc)
	m.Kappa, _ = stats.Mean(kap)
	m.LogLoss, _ = stats.Mean(ll)
	if resamples > 1 {
		m.AccuracySD, _ = stats.StandardDeviationSample(acc)
		m.KappaSD, _ = stats.StandardDeviationSample(kap)
		m.LogLossSD, _ = stats.StandardDeviationSample(ll)
	}
	return m, nil
}

// stratifiedFolds assigns each row a fold so both classes spread evenly
func stratifiedFolds(y []float64, folds int, rng *rand.Rand) []int {
	var pos, neg []int
	for i, v := range y {
		if v == 1 {
			pos = append(pos, i)
		} else {
			neg = append(neg, i)
		}
	}
	rng.Shuffle(len(pos), func(i, j int) { pos[i], pos[j] = pos[j], pos[i] })
	rng.Shuffle(len(neg), func(i, j int) { neg[i], neg[j] = neg[j], neg[i] })

	assignment := make([]int, len(y))
	for i, row := range append(pos, neg...) {
		assignment[row] = i % folds
	}
	return assignment
}

func scoreFold(y []float64, test []int, score Scorer) (foldScore, error) {
	if len(test) == 0 {
		return foldScore{}, fmt.Errorf("empty test fold")
	}

	var correct, truePos, predPos, logLoss float64
	for _, row := range test {
		p, err := score(row)
		if err != nil {
			return foldScore{}, err
		}
		p = math.Min(1-probFloor, math.Max(probFloor, p))
		predicted := 0.0
		if p >= 0.5 {
			predicted = 1
		}
		if predicted == y[row] {
			correct++
		}
		truePos += y[row]
		predPos += predicted
		if y[row] == 1 {
			logLoss -= math.Log(p)
		} else {
			logLoss -= math.Log(1 - p)
		}
	}

	n := float64(len(test))
	accuracy := correct / n
	expected := (truePos/n)*(predPos/n) + (1-truePos/n)*(1-predPos/n)
	kappa := 0.0
	if expected < 1 {
		kappa = (accuracy - expected) / (1 - expected)
	}
	return foldScore{accuracy: accuracy, kappa: kappa, logLoss: logLoss / n}, nil
}
