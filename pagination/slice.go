package pagination

import (
	"fmt"
	"math"
)

// Placement positions the full document image on one output page. OffsetMm
// is the vertical offset of the image's top edge; the page clips the rest.
type Placement struct {
	Page     int     `json:"page"`
	OffsetMm float64 `json:"offset_mm"`
}

// Sheet describes how one tall raster is laid out over A4 pages.
type Sheet struct {
	ImageWidthMm  float64     `json:"image_width_mm"`
	ImageHeightMm float64     `json:"image_height_mm"`
	Placements    []Placement `json:"placements"`
}

// PageCount is ceil(heightMm / 297), and at least one page.
func PageCount(heightMm float64) int {
	n := int(math.Ceil(heightMm / PageHeightMm))
	if n < 1 {
		return 1
	}
	return n
}

// Slice scales a raster of the given pixel size to the page width and places
// it once per page, shifted up by one page height each time.
func Slice(imageWidthPx, imageHeightPx int) (Sheet, error) {
	if imageWidthPx <= 0 || imageHeightPx <= 0 {
		return Sheet{}, fmt.Errorf("invalid image size %dx%d", imageWidthPx, imageHeightPx)
	}
	heightMm := float64(imageHeightPx) * PageWidthMm / float64(imageWidthPx)
	sheet := Sheet{ImageWidthMm: PageWidthMm, ImageHeightMm: heightMm}
	for i := 0; i < PageCount(heightMm); i++ {
		sheet.Placements = append(sheet.Placements, Placement{Page: i, OffsetMm: -float64(i) * PageHeightMm})
	}
	return sheet, nil
}
