package render

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/relembraq/relembraq/engine/core"
	"github.com/relembraq/relembraq/engine/projection"
)

const (
	scatterTitle = "Clusters de Resumos (PCA 3D)"
	scatterScale = 110.0
	pointRadius  = 1.6
	// depth axis is drawn receding at 45 degrees, shortened by half
	depthFactor = 0.5
)

var depthCos, depthSin = math.Cos(math.Pi/4) * depthFactor, math.Sin(math.Pi/4) * depthFactor

type axisRange struct {
	min, span float64
}

func newAxisRange(values []float64) axisRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo == 0 {
		return axisRange{min: lo - 0.5, span: 1}
	}
	return axisRange{min: lo, span: hi - lo}
}

func (r axisRange) unit(v float64) float64 {
	return (v - r.min) / r.span
}

// ScatterPDF plots projected points in an oblique 3D view, colored and
// annotated by cluster label.
func ScatterPDF(w io.Writer, points []projection.Point, labels []int) error {
	if len(points) != len(labels) {
		return core.InvalidConfiguration(
			"labels",
			"got %d labels for %d points", len(labels), len(points),
		)
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	rx, ry, rz := newAxisRange(xs), newAxisRange(ys), newAxisRange(zs)

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(scatterTitle, true)
	pdf.SetCreator("relembraq", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()

	originX := pageW/2 - scatterScale*0.6
	originY := pageH - 40.0
	screen := func(u, v, d float64) (float64, float64) {
		return originX + scatterScale*(u+d*depthCos), originY - scatterScale*(v+d*depthSin)
	}

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetXY(0, 12)
	pdf.CellFormat(pageW, 8, tr(scatterTitle), "", 0, "C", false, 0, "")

	drawAxes(pdf, screen)

	order := depthOrder(points, ry)
	pdf.SetFont("Helvetica", "", 7)
	for _, i := range order {
		px, py := screen(rx.unit(xs[i]), rz.unit(zs[i]), ry.unit(ys[i]))
		c := clusterColor(labels[i])
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.2)
		pdf.Circle(px, py, pointRadius, "FD")
		pdf.SetTextColor(30, 30, 30)
		pdf.Text(px+pointRadius+0.6, py-pointRadius, strconv.Itoa(labels[i]+1))
	}

	drawLegend(pdf, labels, pageW)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render: scatter pdf: %w", err)
	}
	return nil
}

// depthOrder returns point indexes from far to near so nearer points are
// drawn on top.
func depthOrder(points []projection.Point, ry axisRange) []int {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(ry.unit(points[b].Y), ry.unit(points[a].Y))
	})
	return order
}

func drawAxes(pdf *gofpdf.Fpdf, screen func(u, v, d float64) (float64, float64)) {
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.15)
	for step := 0.25; step <= 1.0; step += 0.25 {
		x0, y0 := screen(0, 0, step)
		x1, y1 := screen(1, 0, step)
		pdf.Line(x0, y0, x1, y1)
		x0, y0 = screen(step, 0, 0)
		x1, y1 = screen(step, 0, 1)
		pdf.Line(x0, y0, x1, y1)
	}
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.4)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(60, 60, 60)
	axes := []struct {
		u, v, d float64
		label   string
	}{
		{1, 0, 0, "PCA1"},
		{0, 0, 1, "PCA2"},
		{0, 1, 0, "PCA3"},
	}
	ox, oy := screen(0, 0, 0)
	for _, a := range axes {
		x, y := screen(a.u, a.v, a.d)
		pdf.Line(ox, oy, x, y)
		pdf.Text(x+1.5, y+1, a.label)
	}
}

func drawLegend(pdf *gofpdf.Fpdf, labels []int, pageW float64) {
	seen := map[int]bool{}
	var distinct []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			distinct = append(distinct, l)
		}
	}
	slices.Sort(distinct)
	x := pageW - 50.0
	y := 30.0
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range distinct {
		c := clusterColor(l)
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.SetDrawColor(0, 0, 0)
		pdf.Circle(x, y, pointRadius, "FD")
		pdf.SetTextColor(30, 30, 30)
		pdf.Text(x+4, y+1.2, fmt.Sprintf("%s %d", clusterPrefix, l+1))
		y += 6
	}
}
