package handlers

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"uebergabe/geocode"
	"uebergabe/models"
	"uebergabe/repository"
	"uebergabe/utils"
	"uebergabe/wizard"
)

type ApiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp ApiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, ApiResponse{Success: true, Message: message, Data: data})
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, wizard.ErrBusy), errors.Is(err, wizard.ErrCompleted):
		status = http.StatusConflict
	case errors.Is(err, wizard.ErrNoSignatures), errors.Is(err, wizard.ErrNotConfirmed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, wizard.ErrUnknownEntry), errors.Is(err, wizard.ErrUnknownOp),
		errors.Is(err, wizard.ErrInvalidStep), errors.Is(err, wizard.ErrEmptySignature),
		errors.Is(err, models.ErrInvalidImage):
		status = http.StatusBadRequest
	case errors.Is(err, wizard.ErrSubmission):
		status = http.StatusBadGateway
	case errors.Is(err, utils.ErrChromeUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, geocode.ErrSuperseded):
		status = http.StatusConflict
	}
	writeJSON(w, status, ApiResponse{Success: false, Message: err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, ApiResponse{
		Success: false,
		Message: "Invalid request method",
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, ApiResponse{
			Success: false,
			Message: "Invalid request payload: " + err.Error(),
		})
		return false
	}
	return true
}

// photos arrive base64 encoded inside JSON
const maxBodyBytes = 64 << 20

func writePDF(w http.ResponseWriter, art *utils.Artifact) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(art.PDF)
}
