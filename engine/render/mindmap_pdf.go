package render

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"github.com/relembraq/relembraq/engine/cluster"
)

const (
	pageWidth   = 297.0
	pageMinHigh = 210.0
	pageMargin  = 15.0
	rowHeight   = 10.0
	boxHeight   = 7.0
	rootX       = pageMargin
	rootWidth   = 36.0
	parentX     = 70.0
	parentWidth = 32.0
	childX      = 125.0
	textPadding = 3.0
)

type nodeBox struct {
	x, y, w float64
	label   string
	color   rgb
}

// MindMapPDF draws the clusters as a tree: a root node, one node per cluster
// and one leaf per sentence, with leaf labels truncated.
func MindMapPDF(w io.Writer, a cluster.Assignment) error {
	keys := sortedKeys(a)
	rows := 0
	for _, id := range keys {
		rows += max(1, len(a[id]))
	}
	height := math.Max(pageMinHigh, 2*pageMargin+float64(rows)*rowHeight+rowHeight)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: height},
	})
	pdf.SetTitle(mindMapTitle, true)
	pdf.SetCreator("relembraq", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 9)

	childWidth := pageWidth - pageMargin - childX
	y := pageMargin + rowHeight
	parents := make([]nodeBox, 0, len(keys))
	for _, id := range keys {
		color := clusterColor(id)
		members := a[id]
		first := y
		parentY := first + float64(max(0, len(members)-1))*rowHeight/2
		for _, s := range members {
			leaf := nodeBox{x: childX, y: y, w: childWidth, label: tr(Truncate(s, labelLimit)), color: color.lighten(0.75)}
			leaf.w = math.Min(childWidth, pdf.GetStringWidth(leaf.label)+2*textPadding)
			drawEdge(pdf, parentX+parentWidth, parentY, leaf)
			drawBox(pdf, leaf)
			y += rowHeight
		}
		if len(members) == 0 {
			y += rowHeight
		}
		parents = append(parents, nodeBox{
			x:     parentX,
			y:     parentY,
			w:     parentWidth,
			label: tr(fmt.Sprintf("%s %d", clusterPrefix, id+1)),
			color: color.lighten(0.4),
		})
	}

	rootY := height / 2
	if len(parents) > 0 {
		rootY = (parents[0].y + parents[len(parents)-1].y) / 2
	}
	root := nodeBox{x: rootX, y: rootY, w: rootWidth, label: tr(mindMapTitle), color: rgb{0x33, 0x33, 0x33}}
	for _, p := range parents {
		drawEdge(pdf, root.x+root.w, root.y, p)
		drawBox(pdf, p)
	}
	pdf.SetFont("Helvetica", "B", 10)
	drawBox(pdf, root)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render: mind map pdf: %w", err)
	}
	return nil
}

func drawEdge(pdf *gofpdf.Fpdf, fromX, fromY float64, to nodeBox) {
	pdf.SetDrawColor(150, 150, 150)
	pdf.SetLineWidth(0.3)
	midX := (fromX + to.x) / 2
	pdf.Curve(fromX, fromY, midX, to.y, to.x, to.y, "D")
}

func drawBox(pdf *gofpdf.Fpdf, n nodeBox) {
	pdf.SetFillColor(n.color.R, n.color.G, n.color.B)
	pdf.SetDrawColor(80, 80, 80)
	pdf.SetLineWidth(0.2)
	pdf.Rect(n.x, n.y-boxHeight/2, n.w, boxHeight, "FD")
	if luminance(n.color) < 0.5 {
		pdf.SetTextColor(255, 255, 255)
	} else {
		pdf.SetTextColor(20, 20, 20)
	}
	pdf.SetXY(n.x, n.y-boxHeight/2)
	pdf.CellFormat(n.w, boxHeight, n.label, "", 0, "C", false, 0, "")
}

func luminance(c rgb) float64 {
	return (0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)) / 255
}
