package handlers

import (
	"net/http"

	"uebergabe/repository"
	"uebergabe/wizard"
)

type HistoryHandler struct {
	Repo    repository.ProtocolRepository
	Session *wizard.Session
}

type historyItem struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Address      string  `json:"address"`
	PartySummary string  `json:"party_summary"`
	Status       string  `json:"status"`
	UpdatedAt    string  `json:"updated_at"`
	ArtifactRef  *string `json:"artifact_ref,omitempty"`
}

// ListHistory returns the history without the embedded documents.
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := h.Repo.ListHistory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, historyItem{
			ID:           e.ID,
			Date:         e.Date,
			Address:      e.Address,
			PartySummary: e.PartySummary,
			Status:       string(e.Status),
			UpdatedAt:    e.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
			ArtifactRef:  e.ArtifactRef,
		})
	}
	writeOK(w, "", items)
}

// Entry serves GET and DELETE on /history/{id}.
func (h *HistoryHandler) Entry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		e, err := h.Repo.GetHistoryEntry(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, "", e)
	case http.MethodDelete:
		if err := h.Repo.DeleteHistoryEntry(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
		writeOK(w, "History entry deleted", nil)
	default:
		methodNotAllowed(w)
	}
}

func (h *HistoryHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, err := h.Session.Resume(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Protocol resumed", h.Session.State())
}
