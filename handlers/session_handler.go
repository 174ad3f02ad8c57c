package handlers

import (
	"net/http"

	"uebergabe/models"
	"uebergabe/wizard"
)

type SessionHandler struct {
	Session *wizard.Session
}

// GetSession returns the current step, busy flags and document.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeOK(w, "", h.Session.State())
}

// NewProtocol starts a fresh protocol.
func (h *SessionHandler) NewProtocol(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	h.Session.New()
	writeJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "New protocol started", Data: h.Session.State()})
}

type stepRequest struct {
	Action string      `json:"action"` // next | prev | goto
	Step   wizard.Step `json:"step"`
}

func (h *SessionHandler) Step(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req stepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch req.Action {
	case "next":
		h.Session.Next()
	case "prev":
		h.Session.Prev()
	case "goto":
		if err := h.Session.Goto(req.Step); err != nil {
			writeError(w, err)
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, ApiResponse{Success: false, Message: "action must be next, prev or goto"})
		return
	}
	writeOK(w, "", h.Session.State())
}

// Edit applies one typed edit, or a batch of them in order.
func (h *SessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		wizard.EditRequest
		Batch []wizard.EditRequest `json:"batch,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ops := req.Batch
	if len(ops) == 0 {
		ops = []wizard.EditRequest{req.EditRequest}
	}

	var doc *models.Document
	for _, op := range ops {
		e, err := op.ToEdit()
		if err != nil {
			writeError(w, err)
			return
		}
		if doc, err = h.Session.Apply(e); err != nil {
			writeError(w, err)
			return
		}
	}
	writeOK(w, "", doc)
}

type signRequest struct {
	Role models.Role `json:"role"`
	Name string      `json:"name"`
	Data []byte      `json:"data"` // png, base64
}

func (h *SessionHandler) Sign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req signRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleSeller
	}
	doc, err := h.Session.Sign(req.Role, req.Name, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ApiResponse{Success: true, Message: "Signature added", Data: doc.Signatures})
}

// PDF renders the current protocol and returns it as a download.
func (h *SessionHandler) PDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	art, err := h.Session.GeneratePDF(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writePDF(w, art)
}

func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	out, err := h.Session.Submit(r.Context(), req.Confirm)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, "Protocol submitted", out)
}
