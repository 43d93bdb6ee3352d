package glm

import (
	"fmt"
	"sort"

	"claimsim/domain/model"
)

const maxSteps = 100

// StepAIC runs a bidirectional stepwise search over the design columns,
// starting from the full main-effects model. At each step every single-term
// drop or add is tried and the move with the lowest AIC is taken; the
// search stops when no move improves AIC. The intercept is always kept.
func StepAIC(d Design, opts Options) (*Logistic, []model.StepRecord, error) {
	current := make([]int, len(d.Names))
	for i := range current {
		current[i] = i
	}

	best, err := FitLogistic(d, current, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("full model: %w", err)
	}
	steps := []model.StepRecord{{Action: "start", Term: "<full>", AIC: best.AIC}}

	for step := 0; step < maxSteps; step++ {
		var (
			bestMove  *Logistic
			bestCols  []int
			bestTrail model.StepRecord
		)

		for _, candidate := range moves(current, len(d.Names)) {
			fit, err := FitLogistic(d, candidate.cols, opts)
			if err != nil {
				// A move that cannot be fitted is simply not taken
				continue
			}
			if bestMove == nil || fit.AIC < bestMove.AIC {
				bestMove = fit
				bestCols = candidate.cols
				bestTrail = model.StepRecord{Action: candidate.action, Term: d.Names[candidate.term], AIC: fit.AIC}
			}
		}

		if bestMove == nil || bestMove.AIC >= best.AIC-1e-9 {
			break
		}
		best = bestMove
		current = bestCols
		steps = append(steps, bestTrail)
	}

	return best, steps, nil
}

type move struct {
	action string
	term   int
	cols   []int
}

// moves enumerates every single-term drop from and add to current
func moves(current []int, total int) []move {
	in := make(map[int]bool, len(current))
	for _, c := range current {
		in[c] = true
	}

	var out []move
	for _, drop := range current {
		cols := make([]int, 0, len(current)-1)
		for _, c := range current {
			if c != drop {
				cols = append(cols, c)
			}
		}
		out = append(out, move{action: "drop", term: drop, cols: cols})
	}
	for add := 0; add < total; add++ {
		if in[add] {
			continue
		}
		cols := append(append([]int(nil), current...), add)
		sort.Ints(cols)
		out = append(out, move{action: "add", term: add, cols: cols})
	}
	return out
}
