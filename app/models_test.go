package app

import (
	"context"
	"testing"

	"claimsim/adapters/stats/glm"
	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingClaims(t *testing.T) []claims.Claim {
	t.Helper()
	cfg := testkit.DefaultClaimsConfig()
	prepared, err := claims.Prepare(testkit.NewClaimsGenerator(cfg).Generate(), cfg.Window())
	require.NoError(t, err)
	return prepared.Training
}

func fastOptions() ModelOptions {
	opts := DefaultModelOptions()
	opts.CV = glm.CVOptions{Folds: 3, Repeats: 1, Seed: 1}
	return opts
}

func TestFitClosureModel(t *testing.T) {
	m, err := FitClosureModel(context.Background(), trainingClaims(t), fastOptions())
	require.NoError(t, err)

	s := m.Describe()
	assert.Equal(t, model.StageClosure, s.Stage)
	assert.Contains(t, s.Terms, "case_reserve")
	assert.Less(t, s.Deviance, s.NullDeviance)
	require.NotNil(t, s.CV)
	assert.Greater(t, s.CV.Accuracy, 0.6)
	assert.Equal(t, 3, s.CV.Resamples)
	require.NotEmpty(t, s.Steps)
	assert.Equal(t, "start", s.Steps[0].Action)
	assert.LessOrEqual(t, s.Steps[len(s.Steps)-1].AIC, s.Steps[0].AIC)

	open, err := m.PredictProbability(model.Predictors{Status: claims.StatusOpen, CaseReserve: 20000, PaidIncremental: 1000})
	require.NoError(t, err)
	closed, err := m.PredictProbability(model.Predictors{Status: claims.StatusClosed})
	require.NoError(t, err)
	assert.Greater(t, open, closed)
	assert.Less(t, closed, 0.2)
}

func TestFitZeroPaymentModel(t *testing.T) {
	m, err := FitZeroPaymentModel(context.Background(), trainingClaims(t), fastOptions())
	require.NoError(t, err)

	s := m.Describe()
	assert.Equal(t, model.StageZeroPayment, s.Stage)
	assert.Contains(t, s.Terms, "future_status")

	base := model.Predictors{Status: claims.StatusOpen, CaseReserve: 5000, PaidIncremental: 500}
	stay := base
	stay.FutureStatus = claims.StatusOpen
	settle := base
	settle.FutureStatus = claims.StatusClosed

	pStay, err := m.PredictProbability(stay)
	require.NoError(t, err)
	pSettle, err := m.PredictProbability(settle)
	require.NoError(t, err)
	assert.Greater(t, pStay, pSettle)
}

func TestFitZeroPaymentModel_ExcludesClosedClosed(t *testing.T) {
	training := trainingClaims(t)
	m, err := FitZeroPaymentModel(context.Background(), training, ModelOptions{GLM: glm.DefaultOptions(), NoCV: true})
	require.NoError(t, err)

	assert.Equal(t, len(claims.ZeroPaymentTraining(training)), m.Describe().Observations)
	assert.Less(t, m.Describe().Observations, len(training))
	assert.Nil(t, m.Describe().CV)
}

func TestFitPaymentModel(t *testing.T) {
	training := trainingClaims(t)
	m, err := FitPaymentModel(context.Background(), training, fastOptions())
	require.NoError(t, err)

	s := m.Describe()
	assert.Equal(t, model.StagePayment, s.Stage)
	assert.Equal(t, len(claims.PaymentTraining(training)), s.Observations)
	assert.Len(t, s.Smooths, 2)
	assert.Greater(t, s.Dispersion, 1.0)
	assert.Greater(t, s.EDF, 2.0)

	small, err := m.PredictExpectation(model.Predictors{FutureStatus: claims.StatusOpen, CaseReserve: 100, PaidIncremental: 0})
	require.NoError(t, err)
	large, err := m.PredictExpectation(model.Predictors{FutureStatus: claims.StatusOpen, CaseReserve: 100000, PaidIncremental: 0})
	require.NoError(t, err)
	assert.Greater(t, small, 0.0)
	assert.Greater(t, large, small)
}

func TestFitModels_NoTrainingRows(t *testing.T) {
	_, err := FitModels(context.Background(), nil, fastOptions())
	assert.ErrorIs(t, err, core.ErrInsufficientData)
}

func TestLogisticModel_RejectsNaN(t *testing.T) {
	m, err := FitClosureModel(context.Background(), trainingClaims(t), ModelOptions{GLM: glm.DefaultOptions(), NoCV: true})
	require.NoError(t, err)

	_, err = m.PredictProbability(model.Predictors{Status: claims.StatusOpen, CaseReserve: nan()})
	assert.ErrorIs(t, err, core.ErrInvalidPredictor)
}
