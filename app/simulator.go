package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"claimsim/adapters/stats/draws"
	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
	"claimsim/internal/logger"
	"claimsim/ports"

	"golang.org/x/sync/errgroup"
)

// Simulator draws claim outcomes from the three fitted models
type Simulator struct {
	models  ports.FittedModels
	rngPort ports.RNGPort
}

// NewSimulator creates a simulator over fitted models
func NewSimulator(models ports.FittedModels, rngPort ports.RNGPort) *Simulator {
	return &Simulator{models: models, rngPort: rngPort}
}

// claimInputs holds every model prediction a claim's trials need. The
// zero-payment and payment predictions depend on the simulated future
// status, so both branches are computed up front.
type claimInputs struct {
	claim       claims.Claim
	pOpen       float64
	pNonzero    [2]float64 // indexed by future status indicator
	mean        [2]float64
	closedToday bool
}

func branch(s claims.Status) int {
	if s.IsOpen() {
		return 1
	}
	return 0
}

func (s *Simulator) predict(cs []claims.Claim) ([]claimInputs, error) {
	out := make([]claimInputs, len(cs))
	for i, c := range cs {
		in := claimInputs{claim: c, closedToday: c.Status.IsClosed()}

		p, err := s.models.Closure.PredictProbability(model.FromClaim(c, ""))
		if err != nil {
			return nil, fmt.Errorf("claim %s: %s model: %w", c.ClaimID, model.StageClosure, err)
		}
		in.pOpen = p

		for _, future := range []claims.Status{claims.StatusClosed, claims.StatusOpen} {
			b := branch(future)
			if in.closedToday && future.IsClosed() {
				// closed-closed never reaches the payment stages
				continue
			}
			preds := model.FromClaim(c, future)
			if in.pNonzero[b], err = s.models.ZeroPayment.PredictProbability(preds); err != nil {
				return nil, fmt.Errorf("claim %s: %s model: %w", c.ClaimID, model.StageZeroPayment, err)
			}
			if in.mean[b], err = s.models.Payment.PredictExpectation(preds); err != nil {
				return nil, fmt.Errorf("claim %s: %s model: %w", c.ClaimID, model.StagePayment, err)
			}
		}
		out[i] = in
	}
	return out, nil
}

// drawTrial simulates one claim in one trial. The source is consumed in a
// fixed order: future status, then the zero-payment draw, then the payment.
func drawTrial(trial int, in claimInputs, src rand.Source) simulation.Trial {
	t := simulation.Trial{TrialID: trial, ClaimID: in.claim.ClaimID, FutureStatus: claims.StatusClosed}
	if draws.Bernoulli(in.pOpen, src) {
		t.FutureStatus = claims.StatusOpen
	}

	if in.closedToday && t.FutureStatus.IsClosed() {
		t.Outcome = simulation.OutcomeClosedClosed
		return t
	}

	b := branch(t.FutureStatus)
	if !draws.Bernoulli(in.pNonzero[b], src) {
		t.Outcome = simulation.OutcomeZero
		return t
	}

	t.Outcome = simulation.OutcomeNonzero
	t.Payment = draws.NegativeBinomialMean(in.mean[b], src)
	return t
}

// Run simulates cfg.Trials independent trials for every claim. Trial t
// draws from the stream (cfg.Seed, t), so the result does not depend on the
// number of workers.
func (s *Simulator) Run(ctx context.Context, cs []claims.Claim, cfg simulation.Config) (*simulation.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: no claims to simulate", core.ErrInsufficientData)
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	inputs, err := s.predict(cs)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	trials := make([][]simulation.Trial, cfg.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for t := 0; t < cfg.Trials; t++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := s.rngPort.Stream(cfg.Seed, uint64(t))
			row := make([]simulation.Trial, len(inputs))
			for i, in := range inputs {
				row[i] = drawTrial(t+1, in, src)
			}
			trials[t] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	ids := claims.IDs(cs)
	res := &simulation.Result{
		Config: cfg,
		Claims: ids,
		Trials: trials,
		Print:  core.ComputeRunFingerprint(cfg.Seed, cfg.Trials, ids),
		Took:   time.Since(start),
	}

	log.Infow("[Simulator] finished",
		"claims", len(cs),
		"trials", cfg.Trials,
		"workers", workers,
		"fingerprint", core.Hash(res.Print).Short(),
		"took", res.Took)
	return res, nil
}
