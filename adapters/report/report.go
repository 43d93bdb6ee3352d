// Package report renders a simulation run as Markdown and HTML
package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"os"
	"strings"

	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/logger"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/*
var embeddedFiles embed.FS

var page = template.Must(template.ParseFS(embeddedFiles, "templates/page.html"))

// PageOptions controls how the claim viewer gets its content
type PageOptions struct {
	// Live makes the viewer fetch /claims/{id} from the serving app instead
	// of embedding every claim's fragment in the page.
	Live bool
}

type pageData struct {
	Title     string
	Body      template.HTML
	ClaimIDs  []string
	Fragments map[string]template.HTML
	Live      bool
}

// ToHTML converts Markdown to an HTML fragment. Raw HTML blocks such as
// inline SVG pass through.
func ToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, r)
}

// Page renders the full report document
func Page(run *simulation.Run, opts PageOptions) ([]byte, error) {
	if run == nil || run.Summary == nil {
		return nil, core.NewValidationError("run", "has no summary")
	}

	data := pageData{
		Title: fmt.Sprintf("Claim development simulation %s", run.Summary.Print.Short()),
		Body:  template.HTML(ToHTML(Markdown(run))),
		Live:  opts.Live,
	}
	if !opts.Live {
		data.Fragments = make(map[string]template.HTML, len(run.Summary.ByClaim))
	}
	for _, c := range run.Summary.ByClaim {
		id := c.ClaimID.String()
		data.ClaimIDs = append(data.ClaimIDs, id)
		if !opts.Live {
			frag, err := ClaimFragment(run, c.ClaimID)
			if err != nil {
				return nil, err
			}
			data.Fragments[id] = template.HTML(frag)
		}
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders a standalone report to path
func Write(ctx context.Context, path string, run *simulation.Run) error {
	out, err := Page(run, PageOptions{})
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.FromContext(ctx).Infof("[Report] wrote %s (%d bytes)", path, len(out))
	return nil
}

// ClaimMarkdown describes one claim's simulated outcome. The payment
// histogram needs the run's trials and is omitted for runs loaded from
// storage.
func ClaimMarkdown(run *simulation.Run, id core.ClaimID) (string, error) {
	c, ok := run.Summary.Claim(id)
	if !ok {
		return "", core.NewNotFoundError("claim", id.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### Claim %s\n\n", escape(id.String()))
	t := table{head: []string{"", "Value"}}
	t.add("Current status", c.Status.Label())
	t.add("Case reserve", money(c.CaseReserve))
	t.add("Paid last period", money(c.PaidIncremental))
	t.add("P(open), simulated", pct(c.ProbOpen))
	t.add("P(open), model", pct(c.Expected.ProbOpen))
	t.add("P(nonzero), simulated", pct(c.ProbNonzero))
	t.add("P(nonzero), model", pct(c.Expected.ProbNonzero))
	t.add("Mean payment, simulated", money(c.Payment.Mean))
	t.add("Mean payment, model", money(c.Expected.Payment))
	t.add("Payment P50 / P95 / P99", fmt.Sprintf("%s / %s / %s",
		money(c.Payment.Percentiles.P50), money(c.Payment.Percentiles.P95), money(c.Payment.Percentiles.P99)))
	if c.HasActuals {
		t.add("Actual status", c.ActualStatus.Label())
		t.add("Actual payment", money(c.ActualPaid))
	}
	t.write(&b)

	if run.Result != nil {
		trials := run.Result.ForClaim(id)
		payments := make([]float64, len(trials))
		for i, tr := range trials {
			payments[i] = tr.Payment
		}
		var mark *float64
		if c.HasActuals {
			actual := c.ActualPaid
			mark = &actual
		}
		figure(&b, Histogram("Simulated payment for "+id.String(), "payment", payments, mark, "actual"))
	}
	return b.String(), nil
}

// ClaimFragment renders ClaimMarkdown as HTML
func ClaimFragment(run *simulation.Run, id core.ClaimID) (string, error) {
	md, err := ClaimMarkdown(run, id)
	if err != nil {
		return "", err
	}
	return string(ToHTML(md)), nil
}
