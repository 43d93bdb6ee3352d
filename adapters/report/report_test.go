package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"claimsim/domain/core"
	"claimsim/domain/simulation"
	"claimsim/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBins_Integral(t *testing.T) {
	bins := Bins([]float64{2, 3, 3, 5})
	require.Len(t, bins, 4)
	assert.Equal(t, 1.5, bins[0].Lo)
	assert.Equal(t, []float64{1, 2, 0, 1}, []float64{bins[0].Count, bins[1].Count, bins[2].Count, bins[3].Count})
}

func TestBins_Continuous(t *testing.T) {
	x := make([]float64, 200)
	for i := range x {
		x[i] = float64(i) * 12.5
	}
	x[0] = 0.25
	bins := Bins(x)
	require.NotEmpty(t, bins)
	assert.LessOrEqual(t, len(bins), maxBins)

	var total float64
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, float64(len(x)), total)
}

func TestBins_Constant(t *testing.T) {
	bins := Bins([]float64{0.5, 0.5, 0.5})
	var total float64
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 3.0, total)
	assert.Nil(t, Bins(nil))
}

func TestHistogram_Marker(t *testing.T) {
	actual := 9.0
	svg := Histogram("Open", "open claims", []float64{1, 2, 2, 3}, &actual, "actual")
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, 3, strings.Count(svg, "<rect"))
	assert.Contains(t, svg, `class="marker"`)

	assert.NotContains(t, Histogram("Open", "x", []float64{1}, nil, ""), `class="marker"`)
	assert.Contains(t, Histogram("Empty", "x", nil, nil, ""), "no data")
}

func TestLines(t *testing.T) {
	run := testkit.SampleRun(10)
	svg := Lines("P(open)", "case reserve", "probability", run.Curves)
	assert.Equal(t, len(run.Curves), strings.Count(svg, "<polyline"))
	assert.Contains(t, svg, "Open → Open")
	assert.Contains(t, Lines("none", "x", "y", nil), "no data")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "1,234,568", money(1234567.8))
	assert.Equal(t, "-1,000", money(-1000))
	assert.Equal(t, "12.5%", pct(0.125))
	assert.Equal(t, "NA", num(nan()))
	assert.Equal(t, "<1e-04 ***", pvalue(1e-6))
	assert.Equal(t, "0.030 *", pvalue(0.03))
	assert.Equal(t, "0.500", pvalue(0.5))
}

func TestMarkdown(t *testing.T) {
	run := testkit.SampleRun(50)
	md := Markdown(run)

	for _, want := range []string{
		"# Claim development simulation",
		"### Closure model",
		"### Zero-payment model",
		"### Payment model",
		"`s(case_reserve)`",
		"Stepwise AIC path",
		"CV accuracy (5-fold × 3)",
		"Back-test against known outcomes",
		"| C001 | Closed |",
		"## Timings",
	} {
		assert.Contains(t, md, want)
	}
	assert.Equal(t, 4, strings.Count(md, "<figure>"))
}

func TestPage_Static(t *testing.T) {
	run := testkit.SampleRun(50)
	out, err := Page(run, PageOptions{})
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<svg")
	assert.Contains(t, html, `<option value="C000">`)
	assert.Equal(t, 3, strings.Count(html, "<template data-claim="))
	assert.Regexp(t, `var live =\s*false\s*;`, html)
}

func TestPage_Live(t *testing.T) {
	out, err := Page(testkit.SampleRun(20), PageOptions{Live: true})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<template data-claim=")
	assert.Regexp(t, `var live =\s*true\s*;`, string(out))

	_, err = Page(&simulation.Run{}, PageOptions{})
	assert.Error(t, err)
}

func TestClaimFragment(t *testing.T) {
	run := testkit.SampleRun(40)

	frag, err := ClaimFragment(run, "C002")
	require.NoError(t, err)
	assert.Contains(t, frag, "Claim C002")
	assert.Contains(t, frag, "<svg")
	assert.Contains(t, frag, `class="marker"`)

	run.Result = nil
	frag, err = ClaimFragment(run, "C002")
	require.NoError(t, err)
	assert.NotContains(t, frag, "<svg")

	_, err = ClaimFragment(run, "missing")
	assert.True(t, core.IsNotFoundError(err))
}

func TestClaimIDsAreEscaped(t *testing.T) {
	const id = core.ClaimID(`<script>alert("x")</script>|C_1`)
	run := testkit.SampleRun(10)
	run.Result = nil
	run.Summary.ByClaim[0].ClaimID = id

	frag, err := ClaimFragment(run, id)
	require.NoError(t, err)
	assert.NotContains(t, frag, "<script>")
	assert.Contains(t, frag, "&lt;script&gt;")

	out, err := Page(run, PageOptions{Live: true})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>alert")

	assert.Contains(t, escape("A|B_c*"), `A\|B\_c\*`)
}

func TestWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, Write(context.Background(), path, testkit.SampleRun(30)))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "</html>")
}
