package handlers

import (
	"net/http"

	"uebergabe/models"
	"uebergabe/wizard"
)

// RenderHandler turns a posted document into a PDF without touching the
// session or storage.
type RenderHandler struct {
	Renderer wizard.Renderer
}

func (h *RenderHandler) Render(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var doc models.Document
	if !decodeBody(w, r, &doc) {
		return
	}
	if err := doc.ValidateImages(); err != nil {
		writeError(w, err)
		return
	}
	if doc.ID == "" {
		doc.ID = models.NewID()
	}
	art, err := h.Renderer.Generate(r.Context(), &doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writePDF(w, art)
}
