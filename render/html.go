package render

import (
	"bytes"
	"embed"
	"encoding/base64"
	"html/template"
	"net/http"
	"strings"
	"time"

	"uebergabe/models"
)

//go:embed templates/protocol.html
var templateFS embed.FS

// PageOptions carries the presentation settings that are not part of the
// document itself.
type PageOptions struct {
	Title string
	Brand string
	// Location is used to print signature timestamps; nil means UTC.
	Location *time.Location
}

// DefaultBrand is printed in the header when PageOptions.Brand is empty.
const DefaultBrand = "LUDWIGS\nIMMOBILIEN"

type pageData struct {
	Title  string
	Blocks []Block
}

// HTML renders the block tree as a standalone print page. Every atomic block
// becomes one element with a data-block attribute holding its Seq, so a
// layout surface can address it.
func HTML(blocks []Block, opts PageOptions) ([]byte, error) {
	brand := opts.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	funcs := template.FuncMap{
		"brand": func() string { return brand },
		"join":  strings.Join,
		"stamp": func(t time.Time) string { return t.In(loc).Format("02.01.2006, 15:04:05") },
		"defectsTitle": func(title string) bool {
			return strings.HasSuffix(title, "Festgestellte Mängel")
		},
		"imageURL":     imageURL,
		"signatureURL": func(s models.Signature) template.URL { return dataURL(s.Data) },
	}
	tmpl, err := template.New("protocol.html").Funcs(funcs).ParseFS(templateFS, "templates/protocol.html")
	if err != nil {
		return nil, err
	}
	title := opts.Title
	if title == "" {
		title = "Übergabeprotokoll"
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{Title: title, Blocks: blocks}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func imageURL(img *models.Image) template.URL {
	if img == nil {
		return ""
	}
	return dataURL(img.Data)
}

// dataURL inlines raster bytes so the page has no external resources.
func dataURL(data []byte) template.URL {
	if len(data) == 0 {
		return ""
	}
	mime := http.DetectContentType(data)
	return template.URL("data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data))
}
