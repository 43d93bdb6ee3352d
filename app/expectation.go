package app

import (
	"claimsim/domain/claims"
	"claimsim/domain/simulation"
	"claimsim/ports"
)

// ExpectedOutcome computes each claim's analytic expectation under the
// fitted models: P(open), P(nonzero payment) and E[payment], averaging over
// the simulated future status the same way the simulator does.
func ExpectedOutcome(models ports.FittedModels, cs []claims.Claim) ([]simulation.ExpectedClaim, error) {
	inputs, err := (&Simulator{models: models}).predict(cs)
	if err != nil {
		return nil, err
	}

	out := make([]simulation.ExpectedClaim, len(inputs))
	for i, in := range inputs {
		open, closed := in.pOpen, 1-in.pOpen
		e := simulation.ExpectedClaim{ProbOpen: open}

		e.ProbNonzero = open * in.pNonzero[1]
		e.Payment = open * in.pNonzero[1] * in.mean[1]
		if !in.closedToday {
			e.ProbNonzero += closed * in.pNonzero[0]
			e.Payment += closed * in.pNonzero[0] * in.mean[0]
		}
		out[i] = e
	}
	return out, nil
}
