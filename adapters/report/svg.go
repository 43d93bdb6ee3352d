package report

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"claimsim/domain/simulation"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	chartWidth  = 640
	chartHeight = 320
	marginLeft  = 64
	marginRight = 16
	marginTop   = 32
	marginBot   = 48
	maxBins     = 40
)

var palette = []string{"#2563eb", "#dc2626", "#059669", "#d97706"}

// Bin is one histogram bar over [Lo, Hi)
type Bin struct {
	Lo, Hi float64
	Count  float64
}

// Bins buckets x. Integer data with a small range gets unit-width bins
// centered on each value; anything else gets up to maxBins equal bins.
func Bins(x []float64) []Bin {
	if len(x) == 0 {
		return nil
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	var dividers []float64
	if integral(sorted) && hi-lo <= maxBins {
		n := int(hi-lo) + 2
		dividers = floats.Span(make([]float64, n), lo-0.5, hi+0.5)
	} else {
		if hi == lo {
			hi = lo + 1
		}
		dividers = floats.Span(make([]float64, binCount(len(sorted))+1), lo, hi)
		dividers[len(dividers)-1] = math.Nextafter(hi, math.Inf(1))
	}

	counts := stat.Histogram(nil, dividers, sorted, nil)
	out := make([]Bin, len(counts))
	for i, c := range counts {
		out[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: c}
	}
	return out
}

// binCount follows Sturges' rule, capped at maxBins
func binCount(n int) int {
	k := int(math.Ceil(math.Log2(float64(n)))) + 1
	return max(1, min(k, maxBins))
}

func integral(x []float64) bool {
	for _, v := range x {
		if v != math.Trunc(v) {
			return false
		}
	}
	return true
}

type frame struct {
	xlo, xhi, ylo, yhi float64
}

func (f frame) px(x float64) float64 {
	w := float64(chartWidth - marginLeft - marginRight)
	if f.xhi == f.xlo {
		return marginLeft + w/2
	}
	return marginLeft + (x-f.xlo)/(f.xhi-f.xlo)*w
}

func (f frame) py(y float64) float64 {
	h := float64(chartHeight - marginTop - marginBot)
	if f.yhi == f.ylo {
		return marginTop + h
	}
	return marginTop + h - (y-f.ylo)/(f.yhi-f.ylo)*h
}

func begin(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" class="chart" viewBox="0 0 %d %d" width="%d" height="%d" role="img">`+"\n",
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(b, `<text x="%d" y="20" font-size="14" font-weight="bold">%s</text>`+"\n", marginLeft, html.EscapeString(title))
}

func axes(b *strings.Builder, f frame, xlabel, ylabel string) {
	x0, y0 := f.px(f.xlo), f.py(f.ylo)
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", x0, y0, f.px(f.xhi), y0)
	fmt.Fprintf(b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`+"\n", x0, y0, x0, f.py(f.yhi))
	for _, t := range []float64{0, 0.5, 1} {
		xv := f.xlo + t*(f.xhi-f.xlo)
		yv := f.ylo + t*(f.yhi-f.ylo)
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" font-size="10" text-anchor="middle">%s</text>`+"\n", f.px(xv), y0+14, tick(xv))
		fmt.Fprintf(b, `<text x="%.1f" y="%.1f" font-size="10" text-anchor="end">%s</text>`+"\n", x0-4, f.py(yv)+3, tick(yv))
	}
	fmt.Fprintf(b, `<text x="%.1f" y="%d" font-size="11" text-anchor="middle">%s</text>`+"\n",
		f.px((f.xlo+f.xhi)/2), chartHeight-10, html.EscapeString(xlabel))
	fmt.Fprintf(b, `<text x="14" y="%.1f" font-size="11" text-anchor="middle" transform="rotate(-90 14 %.1f)">%s</text>`+"\n",
		f.py((f.ylo+f.yhi)/2), f.py((f.ylo+f.yhi)/2), html.EscapeString(ylabel))
}

func tick(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	case a == math.Trunc(a):
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

// Histogram draws x as bars. When marker is non-nil a vertical line is drawn
// at that value, labelled markerLabel.
func Histogram(title, xlabel string, x []float64, marker *float64, markerLabel string) string {
	var b strings.Builder
	begin(&b, title)
	bins := Bins(x)
	if len(bins) == 0 {
		b.WriteString(`<text x="320" y="160" text-anchor="middle">no data</text>` + "\n</svg>")
		return b.String()
	}

	f := frame{xlo: bins[0].Lo, xhi: bins[len(bins)-1].Hi}
	for _, bin := range bins {
		f.yhi = math.Max(f.yhi, bin.Count)
	}
	if marker != nil {
		f.xlo = math.Min(f.xlo, *marker)
		f.xhi = math.Max(f.xhi, *marker)
	}
	axes(&b, f, xlabel, "trials")

	for _, bin := range bins {
		x0, x1 := f.px(bin.Lo), f.px(bin.Hi)
		y := f.py(bin.Count)
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="0.7"><title>%s to %s: %.0f</title></rect>`+"\n",
			x0, y, math.Max(x1-x0-1, 1), f.py(0)-y, palette[0], tick(bin.Lo), tick(bin.Hi), bin.Count)
	}
	if marker != nil {
		x := f.px(*marker)
		fmt.Fprintf(&b, `<line class="marker" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2" stroke-dasharray="4 2"/>`+"\n",
			x, f.py(0), x, f.py(f.yhi), palette[1])
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="10" fill="%s">%s</text>`+"\n",
			x+4, f.py(f.yhi)+10, palette[1], html.EscapeString(markerLabel))
	}
	b.WriteString("</svg>")
	return b.String()
}

// Lines draws fitted curves sharing one x axis, with a legend
func Lines(title, xlabel, ylabel string, curves []simulation.Curve) string {
	var b strings.Builder
	begin(&b, title)

	f := frame{xlo: math.Inf(1), xhi: math.Inf(-1), ylo: 0, yhi: 1}
	for _, c := range curves {
		for _, p := range c.Points {
			f.xlo = math.Min(f.xlo, p.X)
			f.xhi = math.Max(f.xhi, p.X)
			f.yhi = math.Max(f.yhi, p.Y)
		}
	}
	if math.IsInf(f.xlo, 1) {
		b.WriteString(`<text x="320" y="160" text-anchor="middle">no data</text>` + "\n</svg>")
		return b.String()
	}
	axes(&b, f, xlabel, ylabel)

	for i, c := range curves {
		color := palette[i%len(palette)]
		pts := make([]string, len(c.Points))
		for j, p := range c.Points {
			pts[j] = fmt.Sprintf("%.1f,%.1f", f.px(p.X), f.py(p.Y))
		}
		fmt.Fprintf(&b, `<polyline fill="none" stroke="%s" stroke-width="2" points="%s"/>`+"\n", color, strings.Join(pts, " "))
		ly := marginTop + 14*i
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="10" height="10" fill="%s"/>`+"\n", chartWidth-marginRight-120, ly, color)
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="10">%s</text>`+"\n", chartWidth-marginRight-106, ly+9, html.EscapeString(c.Label))
	}
	b.WriteString("</svg>")
	return b.String()
}
