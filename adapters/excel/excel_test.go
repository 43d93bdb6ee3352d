package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"claimsim/domain/claims"
	"claimsim/domain/core"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
	"claimsim/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleClaims() []claims.Claim {
	cfg := testkit.DefaultClaimsConfig()
	cfg.ClaimsPerPeriod = 15
	cfg.Periods = 3
	cfg.WithholdActuals = true
	return testkit.NewClaimsGenerator(cfg).Generate()
}

func TestWriteClaims_RoundTrip(t *testing.T) {
	for _, ext := range []string{".csv", ".xlsx"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "claims"+ext)
			want := sampleClaims()

			require.NoError(t, WriteClaims(context.Background(), path, want))
			got, err := NewClaimSource(path).LoadClaims(context.Background())
			require.NoError(t, err)

			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i], got[i], "row %d", i)
			}
		})
	}
}

func TestParseClaims_Aliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract.csv")
	content := "Claim Number,Eval Date,DEVT,Status,Case,tot_pd_incr,status_act,tot_pd_incr_act\n" +
		"A-1,6/30/2022,12,Open,\"$12,500\",300,Closed,\"1,200\"\n" +
		"A-2,2022-06-30,12,C,0,,,\n" +
		",,,,,,,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := NewClaimSource(path).LoadClaims(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.ClaimID("A-1"), got[0].ClaimID)
	assert.Equal(t, "2022-06-30", got[0].EvalDate.String())
	assert.Equal(t, 12, got[0].DevelopmentAge)
	assert.Equal(t, claims.StatusOpen, got[0].Status)
	assert.InDelta(t, 12500, got[0].CaseReserve, 1e-9)
	assert.InDelta(t, 300, got[0].PaidIncremental, 1e-9)
	assert.True(t, got[0].HasActuals)
	assert.Equal(t, claims.StatusClosed, got[0].FutureStatus)
	assert.InDelta(t, 1200, got[0].FuturePaidIncremental, 1e-9)

	assert.Equal(t, claims.StatusClosed, got[1].Status)
	assert.False(t, got[1].HasActuals)
}

func TestParseClaims_Errors(t *testing.T) {
	tests := []struct {
		name string
		data *ExcelData
	}{
		{"missing column", &ExcelData{Headers: []string{"claim_id", "status"}}},
		{"bad status", &ExcelData{
			Headers: ClaimColumns,
			Rows:    []RawRowData{{"claim_id": "X", "eval_date": "2022-01-01", "development_age": "12", "status": "pending"}},
		}},
		{"bad amount", &ExcelData{
			Headers: ClaimColumns,
			Rows:    []RawRowData{{"claim_id": "X", "eval_date": "2022-01-01", "development_age": "12", "status": "open", "case_reserve": "lots"}},
		}},
		{"bad date", &ExcelData{
			Headers: ClaimColumns,
			Rows:    []RawRowData{{"claim_id": "X", "eval_date": "someday", "development_age": "12", "status": "open"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClaims(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"-", 0},
		{"1,234.50", 1234.5},
		{"$99", 99},
		{"(250)", -250},
		{"-3", -3},
	}
	for _, tt := range tests {
		got, err := parseNumber(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestParseNumber_RejectsNonFinite(t *testing.T) {
	for _, in := range []string{"NaN", "nan", "Inf", "-Inf", "+inf", "1e999", "lots"} {
		_, err := parseNumber(in)
		assert.ErrorIs(t, err, core.ErrInvalidPredictor, in)
	}
}

func TestReadData_MissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "none.xlsx")).ReadData(context.Background())
	assert.ErrorContains(t, err, "not found")
}

func TestExportRun(t *testing.T) {
	run := &simulation.Run{
		Window: claims.Window{DevelopmentAge: 12, PredictionDate: core.NewEvalDate(mustDate("2023-06-30"))},
		Models: simulation.Models{
			Closure: model.Summary{Stage: model.StageClosure, Coefficients: []model.Coefficient{{Term: "(Intercept)", Estimate: -1}}},
		},
		Summary: &simulation.Summary{
			RunID:  core.NewRunID(),
			Config: simulation.Config{Trials: 2, Seed: 1},
			Claims: 1,
			Totals: []simulation.TrialTotals{{TrialID: 1, OpenCount: 1, TotalPaid: 10}, {TrialID: 2, TotalPaid: 0}},
			ByClaim: []simulation.ClaimSummary{
				{ClaimID: "A", Status: claims.StatusOpen, ProbOpen: 0.5},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, ExportRun(context.Background(), path, run))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetClaims, SheetTotals, SheetModels}, f.GetSheetList())
	totals, err := f.GetRows(SheetTotals)
	require.NoError(t, err)
	assert.Len(t, totals, 3)
	assert.Equal(t, []string{"trial_id", "open_count", "total_paid"}, totals[0])

	coefRows, err := f.GetRows(SheetModels)
	require.NoError(t, err)
	require.Len(t, coefRows, 2)
	assert.Equal(t, "closure", coefRows[1][0])

	assert.Error(t, ExportRun(context.Background(), path, nil))
}
