package utils

import (
	"bytes"
	"fmt"

	"codeberg.org/go-pdf/fpdf"

	"uebergabe/pagination"
)

const captureImageName = "protocol-capture"

// PDFInfo carries document metadata written into the PDF.
type PDFInfo struct {
	Title   string
	Subject string
	Author  string
}

// AssemblePDF places the JPEG capture on one A4 page per placement. The image
// is embedded once and referenced from every page.
func AssemblePDF(jpeg []byte, sheet pagination.Sheet, info PDFInfo) ([]byte, int, error) {
	if len(sheet.Placements) == 0 {
		return nil, 0, fmt.Errorf("sheet has no pages")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(info.Title, true)
	pdf.SetSubject(info.Subject, true)
	pdf.SetAuthor(info.Author, true)
	pdf.SetCreator("uebergabe", true)

	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(captureImageName, opts, bytes.NewReader(jpeg))
	if err := pdf.Error(); err != nil {
		return nil, 0, fmt.Errorf("register capture: %w", err)
	}

	for _, p := range sheet.Placements {
		pdf.AddPage()
		pdf.ImageOptions(captureImageName, 0, p.OffsetMm, sheet.ImageWidthMm, sheet.ImageHeightMm, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, 0, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), len(sheet.Placements), nil
}
