package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"claimsim/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *testkit.InMemoryRunStore) {
	t.Helper()
	store := testkit.NewInMemoryRunStore()
	app, err := NewApp(Config{Port: "0"}, store)
	require.NoError(t, err)
	return app, store
}

func get(t *testing.T, app *App, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestApp_NoRun(t *testing.T) {
	app, _ := newTestApp(t)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, app, "/claims/C000").Code)
	assert.Equal(t, http.StatusOK, get(t, app, "/healthz").Code)
}

func TestApp_Report(t *testing.T) {
	app, _ := newTestApp(t)
	app.SetRun(testkit.SampleRun(30))

	rec := get(t, app, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `id="claim-select"`)
	assert.NotContains(t, rec.Body.String(), "<template data-claim=")
}

func TestApp_ClaimFragment(t *testing.T) {
	app, _ := newTestApp(t)
	app.SetRun(testkit.SampleRun(30))

	rec := get(t, app, "/claims/C001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Claim C001")
	assert.Contains(t, rec.Body.String(), "<svg")

	assert.Equal(t, http.StatusNotFound, get(t, app, "/claims/nope").Code)
}

func TestApp_ClaimJSON(t *testing.T) {
	app, _ := newTestApp(t)
	run := testkit.SampleRun(25)
	app.SetRun(run)

	rec := get(t, app, "/api/claims/C000")
	require.Equal(t, http.StatusOK, rec.Code)

	var view claimView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, run.ID, view.RunID)
	assert.Equal(t, "C000", view.Claim.ClaimID.String())
	assert.Len(t, view.Payment, 25)

	rec = get(t, app, "/api/claims/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["code"])
}

func TestApp_Runs(t *testing.T) {
	app, store := newTestApp(t)
	run := testkit.SampleRun(10)
	require.NoError(t, store.SaveRun(context.Background(), run.Summary))

	rec := get(t, app, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), run.ID.String())

	empty, err := NewApp(Config{}, nil)
	require.NoError(t, err)
	assert.Contains(t, get(t, empty, "/runs").Body.String(), "No runs saved.")
}
