package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"claimsim/domain/claims"
	"claimsim/domain/model"
	"claimsim/domain/simulation"
	"claimsim/internal/logger"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary = "Summary"
	SheetClaims  = "Claims"
	SheetTotals  = "Trials"
	SheetModels  = "Models"
)

// WriteClaims writes a claims table as .csv or .xlsx (Sheet1), in the
// layout NewDataReader reads back
func WriteClaims(ctx context.Context, path string, cs []claims.Claim) error {
	rows := make([][]interface{}, 0, len(cs)+1)
	header := make([]interface{}, len(ClaimColumns))
	for i, c := range ClaimColumns {
		header[i] = c
	}
	rows = append(rows, header)
	for _, c := range cs {
		row := []interface{}{
			c.ClaimID.String(),
			c.EvalDate.String(),
			c.DevelopmentAge,
			c.Status.Label(),
			c.CaseReserve,
			c.PaidIncremental,
			"",
			"",
		}
		if c.HasActuals {
			row[6] = c.FutureStatus.Label()
			row[7] = c.FuturePaidIncremental
		}
		rows = append(rows, row)
	}

	var err error
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		err = writeCSV(path, rows)
	} else {
		err = writeSheet(path, "Sheet1", rows)
	}
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Infof("[Writer] wrote %d claims to %s", len(cs), path)
	return nil
}

func writeCSV(path string, rows [][]interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func writeSheet(path, sheet string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return err
		}
	}
	if err := streamRows(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func streamRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return sw.Flush()
}

// ExportRun writes a run's summary, per-claim results, per-trial totals and
// model coefficients to an .xlsx workbook
func ExportRun(ctx context.Context, path string, run *simulation.Run) error {
	if run == nil || run.Summary == nil {
		return fmt.Errorf("nothing to export")
	}
	sum := run.Summary

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	for _, name := range []string{SheetClaims, SheetTotals, SheetModels} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	summaryRows := [][]interface{}{
		{"run_id", sum.RunID.String()},
		{"fingerprint", sum.Print.String()},
		{"prediction_date", run.Window.PredictionDate.String()},
		{"development_age", run.Window.DevelopmentAge},
		{"trials", sum.Config.Trials},
		{"seed", strconv.FormatUint(sum.Config.Seed, 10)},
		{"claims", sum.Claims},
		{"open_count_mean", sum.OpenCount.Mean},
		{"open_count_p95", sum.OpenCount.Percentiles.P95},
		{"expected_open_count", sum.ExpectedOpenCount},
		{"total_paid_mean", sum.TotalPaid.Mean},
		{"total_paid_p95", sum.TotalPaid.Percentiles.P95},
		{"expected_total_paid", sum.ExpectedTotalPaid},
	}
	if bt := sum.BackTest; bt != nil {
		summaryRows = append(summaryRows,
			[]interface{}{"actual_open_count", bt.Actuals.OpenCount},
			[]interface{}{"actual_open_count_rank", bt.OpenCountRank},
			[]interface{}{"actual_total_paid", bt.Actuals.TotalPaid},
			[]interface{}{"actual_total_paid_rank", bt.TotalPaidRank},
		)
	}
	if err := streamRows(f, SheetSummary, summaryRows); err != nil {
		return err
	}

	claimRows := [][]interface{}{{
		"claim_id", "status", "case_reserve", "paid_incremental",
		"prob_open", "prob_nonzero", "payment_mean", "payment_p50", "payment_p95", "payment_p99",
		"expected_payment", "actual_status", "actual_paid",
	}}
	for _, c := range sum.ByClaim {
		actualStatus, actualPaid := interface{}(""), interface{}("")
		if c.HasActuals {
			actualStatus, actualPaid = c.ActualStatus.Label(), c.ActualPaid
		}
		claimRows = append(claimRows, []interface{}{
			c.ClaimID.String(), c.Status.Label(), c.CaseReserve, c.PaidIncremental,
			c.ProbOpen, c.ProbNonzero, c.Payment.Mean, c.Payment.Percentiles.P50,
			c.Payment.Percentiles.P95, c.Payment.Percentiles.P99,
			c.Expected.Payment, actualStatus, actualPaid,
		})
	}
	if err := streamRows(f, SheetClaims, claimRows); err != nil {
		return err
	}

	totalRows := [][]interface{}{{"trial_id", "open_count", "total_paid"}}
	for _, t := range sum.Totals {
		totalRows = append(totalRows, []interface{}{t.TrialID, t.OpenCount, t.TotalPaid})
	}
	if err := streamRows(f, SheetTotals, totalRows); err != nil {
		return err
	}

	modelRows := [][]interface{}{{"stage", "term", "estimate", "std_error", "statistic", "p_value"}}
	for _, m := range []model.Summary{run.Models.Closure, run.Models.ZeroPayment, run.Models.Payment} {
		for _, c := range m.Coefficients {
			modelRows = append(modelRows, []interface{}{string(m.Stage), c.Term, c.Estimate, c.StdError, c.ZValue, c.PValue})
		}
	}
	if err := streamRows(f, SheetModels, modelRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	logger.FromContext(ctx).Infof("[Writer] exported run %s to %s", sum.RunID, path)
	return nil
}
