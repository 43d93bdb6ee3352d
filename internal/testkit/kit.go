package testkit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
	"claimsim/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	runs *InMemoryRunStore
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{runs: NewInMemoryRunStore()}
}

// RNGAdapter returns the seeded stream provider
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return &RNGAdapter{}
}

// RunStore returns the shared in-memory run repository
func (t *TestKit) RunStore() *InMemoryRunStore {
	return t.runs
}

// ClaimSource generates a synthetic claims table
func (t *TestKit) ClaimSource(cfg ClaimsGeneratorConfig) *InMemoryClaimSource {
	return &InMemoryClaimSource{Claims: NewClaimsGenerator(cfg).Generate()}
}

// RNGAdapter implements ports.RNGPort with PCG streams. PCG takes two
// 64-bit seeds, so every (seed, stream) pair is a separate generator.
type RNGAdapter struct{}

// Stream returns the source for (seed, stream)
func (r *RNGAdapter) Stream(seed uint64, stream uint64) rand.Source {
	return rand.NewPCG(seed, stream)
}

// InMemoryClaimSource serves a fixed claims table
type InMemoryClaimSource struct {
	Claims []claims.Claim
	Err    error
}

// LoadClaims returns a copy of the table
func (s *InMemoryClaimSource) LoadClaims(ctx context.Context) ([]claims.Claim, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return append([]claims.Claim(nil), s.Claims...), nil
}

// InMemoryRunStore implements ports.RunRepository in memory
type InMemoryRunStore struct {
	mu    sync.RWMutex
	runs  map[core.RunID]*simulation.Summary
	order []core.RunID
}

// NewInMemoryRunStore creates an empty store
func NewInMemoryRunStore() *InMemoryRunStore {
	return &InMemoryRunStore{runs: make(map[core.RunID]*simulation.Summary)}
}

// SaveRun stores or replaces a summary
func (s *InMemoryRunStore) SaveRun(ctx context.Context, summary *simulation.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[summary.RunID]; !ok {
		s.order = append(s.order, summary.RunID)
	}
	s.runs[summary.RunID] = summary
	return nil
}

// GetRun returns a stored summary
func (s *InMemoryRunStore) GetRun(ctx context.Context, id core.RunID) (*simulation.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary, ok := s.runs[id]
	if !ok {
		return nil, core.NewNotFoundError("run", id.String())
	}
	return summary, nil
}

// ListRuns returns the newest summaries first
func (s *InMemoryRunStore) ListRuns(ctx context.Context, limit int) ([]*simulation.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*simulation.Summary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[s.order[i]])
	}
	return out, nil
}

// StubProbabilityModel returns a fixed probability, or Fn when set
type StubProbabilityModel struct {
	P       float64
	Fn      func(model.Predictors) float64
	Err     error
	Summary model.Summary

	mu    sync.Mutex
	calls int
}

// PredictProbability implements ports.ProbabilityModel
func (m *StubProbabilityModel) PredictProbability(p model.Predictors) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Fn != nil {
		return m.Fn(p), nil
	}
	return m.P, nil
}

// Describe implements ports.ProbabilityModel
func (m *StubProbabilityModel) Describe() model.Summary { return m.Summary }

// Calls reports how many predictions were requested
func (m *StubProbabilityModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// StubExpectationModel returns a fixed mean, or Fn when set
type StubExpectationModel struct {
	Mean    float64
	Fn      func(model.Predictors) float64
	Err     error
	Summary model.Summary
}

// PredictExpectation implements ports.ExpectationModel
func (m *StubExpectationModel) PredictExpectation(p model.Predictors) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Fn != nil {
		return m.Fn(p), nil
	}
	return m.Mean, nil
}

// Describe implements ports.ExpectationModel
func (m *StubExpectationModel) Describe() model.Summary { return m.Summary }

// StubModels bundles constant stub models
func StubModels(pOpen, pNonzero, mean float64) ports.FittedModels {
	return ports.FittedModels{
		Closure:     &StubProbabilityModel{P: pOpen, Summary: model.Summary{Stage: model.StageClosure}},
		ZeroPayment: &StubProbabilityModel{P: pNonzero, Summary: model.Summary{Stage: model.StageZeroPayment}},
		Payment:     &StubExpectationModel{Mean: mean, Summary: model.Summary{Stage: model.StagePayment}},
	}
}

// FixedClaims builds prediction claims with the given statuses, sorted by ID
func FixedClaims(evalDate core.EvalDate, statuses ...claims.Status) []claims.Claim {
	out := make([]claims.Claim, len(statuses))
	for i, s := range statuses {
		out[i] = claims.Claim{
			ClaimID:         core.ClaimID(fmt.Sprintf("C%03d", i)),
			EvalDate:        evalDate,
			DevelopmentAge:  12,
			Status:          s,
			CaseReserve:     float64(1000 * (i + 1)),
			PaidIncremental: float64(250 * i),
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out
}
