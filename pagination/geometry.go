package pagination

import (
	"fmt"
	"math"
)

// Physical A4 page in millimetres and the fixed printable margin on every edge.
const (
	PageWidthMm  = 210.0
	PageHeightMm = 297.0
	MarginMm     = 10.0
)

// Geometry maps the physical page onto the CSS pixel grid of the render
// surface.
type Geometry struct {
	PxPerMm      float64
	PageHeightPx float64
	MarginPx     float64
}

// GeometryFromWidth derives page geometry from the rendered width of the
// 210mm print container.
func GeometryFromWidth(containerWidthPx float64) (Geometry, error) {
	if containerWidthPx <= 0 {
		return Geometry{}, fmt.Errorf("invalid container width %.2fpx", containerWidthPx)
	}
	pxPerMm := containerWidthPx / PageWidthMm
	return Geometry{
		PxPerMm:      pxPerMm,
		PageHeightPx: PageHeightMm * pxPerMm,
		MarginPx:     MarginMm * pxPerMm,
	}, nil
}

// StartPage is the zero-based page a block starting at top begins on.
func (g Geometry) StartPage(top float64) int {
	return int(math.Floor(top / g.PageHeightPx))
}

// BottomLimit is the lowest row of page's printable area.
func (g Geometry) BottomLimit(page int) float64 {
	return float64(page+1)*g.PageHeightPx - g.MarginPx
}

// NextPageTop is the first printable row of the page after page.
func (g Geometry) NextPageTop(page int) float64 {
	return float64(page+1)*g.PageHeightPx + g.MarginPx
}

// Fits reports whether a block of the given extent stays inside the
// printable area of the page it starts on. Touching the limit fits.
func (g Geometry) Fits(top, height float64) bool {
	return top+height <= g.BottomLimit(g.StartPage(top))
}
