package handlers

import (
	"net/http"

	"uebergabe/geocode"
)

type GeocodeHandler struct {
	Suggester *geocode.Suggester
}

type suggestionResponse struct {
	Label     string `json:"label"`
	Formatted string `json:"formatted"`
	Lat       string `json:"lat"`
	Lon       string `json:"lon"`
}

// Search answers address autocompletion. Lookup failures come back as an
// empty list.
func (h *GeocodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	res, err := h.Suggester.Lookup(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]suggestionResponse, 0, len(res))
	for _, s := range res {
		out = append(out, suggestionResponse{Label: s.DisplayName, Formatted: s.Formatted(), Lat: s.Lat, Lon: s.Lon})
	}
	writeOK(w, "", out)
}
