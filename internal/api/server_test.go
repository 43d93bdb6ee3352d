package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"claimsim/app"
	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, req app.RunRequest) (*simulation.Run, error) {
	args := m.Called(ctx, req)
	run, _ := args.Get(0).(*simulation.Run)
	return run, args.Error(1)
}

func defaults() app.RunRequest {
	return app.RunRequest{
		Window:     claims.Window{DevelopmentAge: 12, PredictionDate: core.NewEvalDate(time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))},
		Simulation: simulation.Config{Trials: 100, Seed: 1234},
	}
}

func newTestServer(t *testing.T) (*Server, *mockRunner, *testkit.InMemoryRunStore) {
	t.Helper()
	runner := &mockRunner{}
	store := testkit.NewInMemoryRunStore()
	return NewServer(Config{GinMode: gin.TestMode}, runner, store, defaults()), runner, store
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateRun_AppliesOverrides(t *testing.T) {
	s, runner, _ := newTestServer(t)
	run := testkit.SampleRun(10)

	want := defaults()
	want.Simulation.Trials = 500
	want.Simulation.Seed = 0
	want.Window.PredictionDate = core.NewEvalDate(time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC))
	runner.On("Run", mock.Anything, want).Return(run, nil).Once()

	var seen *simulation.Run
	s.OnRun = func(r *simulation.Run) { seen = r }

	rec := do(t, s, http.MethodPost, "/api/runs", `{"trials":500,"seed":0,"prediction_date":"2023-03-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	runner.AssertExpectations(t)
	assert.Same(t, run, seen)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, run.ID.String(), body["id"])
}

func TestCreateRun_Defaults(t *testing.T) {
	s, runner, _ := newTestServer(t)
	runner.On("Run", mock.Anything, defaults()).Return(testkit.SampleRun(5), nil).Once()

	rec := do(t, s, http.MethodPost, "/api/runs", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	runner.AssertExpectations(t)
}

func TestCreateRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad json", `{"trials":`, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"negative trials", `{"trials":-5}`, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad date", `{"prediction_date":"soon"}`, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"insufficient data", `{}`, core.ErrInsufficientData, http.StatusBadRequest, "INVALID_INPUT"},
		{"singular fit", `{}`, core.ErrSingularFit, http.StatusUnprocessableEntity, "FIT_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, runner, _ := newTestServer(t)
			if tt.err != nil {
				runner.On("Run", mock.Anything, mock.Anything).Return(nil, tt.err).Once()
			}
			rec := do(t, s, http.MethodPost, "/api/runs", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
			if tt.err == nil {
				runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestGetRunAndClaim(t *testing.T) {
	s, _, store := newTestServer(t)
	run := testkit.SampleRun(10)
	require.NoError(t, store.SaveRun(context.Background(), run.Summary))

	rec := do(t, s, http.MethodGet, "/api/runs/"+run.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum simulation.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, run.ID, sum.RunID)
	assert.Equal(t, 3, sum.Claims)

	rec = do(t, s, http.MethodGet, "/api/runs/"+run.ID.String()+"/claims/C001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cs simulation.ClaimSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cs))
	assert.Equal(t, claims.StatusClosed, cs.Status)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/runs/"+run.ID.String()+"/claims/zzz", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/runs/unknown", "").Code)
}

func TestListRuns(t *testing.T) {
	s, _, store := newTestServer(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveRun(context.Background(), testkit.SampleRun(5).Summary))
	}

	rec := do(t, s, http.MethodGet, "/api/runs?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Runs []simulation.Summary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Runs, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/api/runs?limit=x", "").Code)
}

func TestPipelineRunner(t *testing.T) {
	kit := testkit.NewTestKit()
	cfg := testkit.DefaultClaimsConfig()
	cfg.ClaimsPerPeriod = 80
	cfg.Periods = 5

	opts := app.DefaultModelOptions()
	opts.NoCV = true
	pipeline := app.NewPipeline(kit.ClaimSource(cfg), kit.RNGAdapter(), kit.RunStore(), opts)

	s := NewServer(Config{GinMode: gin.TestMode}, pipeline, kit.RunStore(), app.RunRequest{
		Window:     cfg.Window(),
		Simulation: simulation.Config{Trials: 50, Seed: 9},
	})

	rec := do(t, s, http.MethodPost, "/api/runs", `{"trials":40}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run simulation.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	require.NotNil(t, run.Summary)
	assert.Equal(t, 40, run.Summary.Config.Trials)

	rec = do(t, s, http.MethodGet, "/api/runs/"+run.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
