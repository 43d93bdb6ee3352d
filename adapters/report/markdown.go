package report

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"claimsim/domain/model"
	"claimsim/domain/simulation"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "|", `\|`,
)

// escape makes input text such as claim IDs inert in Markdown and in the
// HTML the renderer passes through
func escape(s string) string {
	return html.EscapeString(markdownEscaper.Replace(s))
}

// num formats a statistic for a table cell
func num(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NA"
	case math.IsInf(v, 0):
		return "Inf"
	case v == 0:
		return "0"
	}
	a := math.Abs(v)
	switch {
	case a >= 1e5:
		return fmt.Sprintf("%.0f", v)
	case a >= 100:
		return fmt.Sprintf("%.1f", v)
	case a >= 0.01:
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.2e", v)
}

func money(v float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(v))
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if v < 0 {
		return "-" + b.String()
	}
	return b.String()
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", 100*v)
}

// pvalue prints significance stars the way model summaries usually do
func pvalue(p float64) string {
	stars := ""
	switch {
	case p < 0.001:
		stars = " ***"
	case p < 0.01:
		stars = " **"
	case p < 0.05:
		stars = " *"
	case p < 0.1:
		stars = " ."
	}
	if p < 1e-4 {
		return "<1e-04" + stars
	}
	return num(p) + stars
}

type table struct {
	head []string
	rows [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) write(b *strings.Builder) {
	b.WriteString("| " + strings.Join(t.head, " | ") + " |\n")
	sep := make([]string, len(t.head))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, r := range t.rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func figure(b *strings.Builder, svg string) {
	b.WriteString("<figure>\n")
	b.WriteString(svg)
	b.WriteString("\n</figure>\n\n")
}

var stageTitles = map[model.Stage]string{
	model.StageClosure:     "Closure model",
	model.StageZeroPayment: "Zero-payment model",
	model.StagePayment:     "Payment model",
}

func writeModel(b *strings.Builder, s model.Summary) {
	fmt.Fprintf(b, "### %s\n\n", stageTitles[s.Stage])
	fmt.Fprintf(b, "%s for `%s`, fitted on %d rows.\n\n", s.Method, s.Response, s.Observations)

	coefs := table{head: []string{"Term", "Estimate", "Std. error", "Statistic", "p"}}
	for _, c := range s.Coefficients {
		coefs.add("`"+c.Term+"`", num(c.Estimate), num(c.StdError), num(c.ZValue), pvalue(c.PValue))
	}
	coefs.write(b)

	if len(s.Smooths) > 0 {
		sm := table{head: []string{"Smooth", "Basis", "Lambda", "EDF"}}
		for _, t := range s.Smooths {
			sm.add("`"+t.Term+"`", fmt.Sprint(t.Basis), num(t.Lambda), num(t.EDF))
		}
		sm.write(b)
	}

	stats := table{head: []string{"Statistic", "Value"}}
	stats.add("Deviance", num(s.Deviance))
	stats.add("Null deviance", num(s.NullDeviance))
	stats.add("Deviance explained", pct(s.DevianceExplained()))
	if s.AIC != 0 {
		stats.add("AIC", num(s.AIC))
	}
	if s.EDF != 0 {
		stats.add("EDF", num(s.EDF))
	}
	if s.GCV != 0 {
		stats.add("GCV", num(s.GCV))
	}
	if s.Dispersion != 0 {
		stats.add("Dispersion", num(s.Dispersion))
	}
	stats.add("Iterations", fmt.Sprint(s.Iterations))
	if cv := s.CV; cv != nil {
		stats.add(fmt.Sprintf("CV accuracy (%d-fold × %d)", cv.Folds, cv.Repeats), fmt.Sprintf("%s ± %s", num(cv.Accuracy), num(cv.AccuracySD)))
		stats.add("CV kappa", fmt.Sprintf("%s ± %s", num(cv.Kappa), num(cv.KappaSD)))
		stats.add("CV log loss", fmt.Sprintf("%s ± %s", num(cv.LogLoss), num(cv.LogLossSD)))
	}
	stats.write(b)

	if len(s.Steps) > 1 {
		steps := table{head: []string{"Step", "Action", "Term", "AIC"}}
		for i, st := range s.Steps {
			steps.add(fmt.Sprint(i), st.Action, "`"+st.Term+"`", num(st.AIC))
		}
		b.WriteString("Stepwise AIC path:\n\n")
		steps.write(b)
	}
}

func distributionRow(t *table, name string, d simulation.Distribution, expected float64, format func(float64) string) {
	t.add(name, format(d.Mean), format(d.StdDev), format(d.Percentiles.P50), format(d.Percentiles.P75),
		format(d.Percentiles.P95), format(d.Percentiles.P99), format(expected))
}

func curvesFor(run *simulation.Run, stage model.Stage) []simulation.Curve {
	var out []simulation.Curve
	for _, c := range run.Curves {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// ModelsMarkdown renders coefficient and fit tables for the three stages
func ModelsMarkdown(m simulation.Models) string {
	var b strings.Builder
	for _, s := range []model.Summary{m.Closure, m.ZeroPayment, m.Payment} {
		writeModel(&b, s)
	}
	return b.String()
}

// Markdown renders the run as a Markdown document with inline SVG figures
func Markdown(run *simulation.Run) string {
	var b strings.Builder
	sum := run.Summary

	b.WriteString("# Claim development simulation\n\n")
	fmt.Fprintf(&b, "Run `%s`, fingerprint `%s`, created %s.\n\n", run.ID, sum.Print.Short(), run.CreatedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Data\n\n")
	data := table{head: []string{"Setting", "Value"}}
	data.add("Development age (months)", fmt.Sprint(run.Window.DevelopmentAge))
	data.add("Prediction date", run.Window.PredictionDate.String())
	if !run.Window.TrainingFrom.IsZero() {
		data.add("Training from", run.Window.TrainingFrom.String())
	}
	if !run.Window.TrainingTo.IsZero() {
		data.add("Training to", run.Window.TrainingTo.String())
	}
	data.add("Training rows", fmt.Sprint(run.TrainingRows))
	data.add("Prediction claims", fmt.Sprint(run.PredictionRows))
	data.add("Rows outside the window", fmt.Sprint(run.Skipped))
	data.write(&b)

	b.WriteString("## Models\n\n")
	b.WriteString(ModelsMarkdown(run.Models))

	if len(run.Curves) > 0 {
		b.WriteString("## Fitted probabilities\n\n")
		b.WriteString("Prior payment is held at its training median.\n\n")
		figure(&b, Lines("P(open at next age)", "case reserve", "probability", curvesFor(run, model.StageClosure)))
		figure(&b, Lines("P(nonzero payment | open at next age)", "case reserve", "probability", curvesFor(run, model.StageZeroPayment)))
	}

	b.WriteString("## Simulation\n\n")
	fmt.Fprintf(&b, "%d trials over %d claims, seed %d.\n\n", sum.Config.Trials, sum.Claims, sum.Config.Seed)
	totals := table{head: []string{"Total", "Mean", "Std. dev", "P50", "P75", "P95", "P99", "Expected"}}
	distributionRow(&totals, "Open claims", sum.OpenCount, sum.ExpectedOpenCount, num)
	distributionRow(&totals, "Incremental paid", sum.TotalPaid, sum.ExpectedTotalPaid, money)
	totals.write(&b)

	var openMark, paidMark *float64
	if bt := sum.BackTest; bt != nil {
		open, paid := float64(bt.Actuals.OpenCount), bt.Actuals.TotalPaid
		openMark, paidMark = &open, &paid
		back := table{head: []string{"Total", "Actual", "Percentile rank"}}
		back.add("Open claims", fmt.Sprint(bt.Actuals.OpenCount), pct(bt.OpenCountRank))
		back.add("Incremental paid", money(bt.Actuals.TotalPaid), pct(bt.TotalPaidRank))
		b.WriteString("Back-test against known outcomes:\n\n")
		back.write(&b)
	}

	openCounts := make([]float64, len(sum.Totals))
	paid := make([]float64, len(sum.Totals))
	for i, t := range sum.Totals {
		openCounts[i] = float64(t.OpenCount)
		paid[i] = t.TotalPaid
	}
	figure(&b, Histogram("Simulated open claims", "open claims", openCounts, openMark, "actual"))
	figure(&b, Histogram("Simulated incremental paid", "total paid", paid, paidMark, "actual"))

	if len(sum.OutcomeShare) > 0 {
		shares := table{head: []string{"Outcome", "Share of claim-trials"}}
		for _, o := range simulation.Outcomes {
			shares.add(string(o), pct(sum.OutcomeShare[o]))
		}
		shares.write(&b)
	}

	b.WriteString("## Claims\n\n")
	claimsTable := table{head: []string{"Claim", "Status", "Case reserve", "P(open)", "P(nonzero)", "Mean paid", "P95 paid", "Actual paid"}}
	for _, c := range sum.ByClaim {
		actual := ""
		if c.HasActuals {
			actual = money(c.ActualPaid)
		}
		claimsTable.add(escape(c.ClaimID.String()), c.Status.Label(), money(c.CaseReserve), pct(c.ProbOpen), pct(c.ProbNonzero),
			money(c.Payment.Mean), money(c.Payment.Percentiles.P95), actual)
	}
	claimsTable.write(&b)

	if len(run.Timings) > 0 {
		timings := table{head: []string{"Stage", "Took"}}
		for _, t := range run.Timings {
			timings.add(t.Stage, t.Took.Round(time.Millisecond).String())
		}
		b.WriteString("## Timings\n\n")
		timings.write(&b)
	}
	return b.String()
}
