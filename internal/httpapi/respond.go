package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/curiolearn/curio-backend/internal/completion"
)

const alreadyCompletedMessage = "This question has already been completed and cannot be resubmitted"

type successEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func respondSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Message: message, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Success: false, Error: message})
}

// respondDomainError maps domain errors onto the response envelope:
// NotFound 404, AlreadyCompleted 400, anything else 500.
func respondDomainError(w http.ResponseWriter, err error) {
	var nf *completion.NotFoundError
	switch {
	case errors.As(err, &nf):
		respondError(w, http.StatusNotFound, nf.Error())
	case errors.Is(err, completion.ErrAlreadyCompleted):
		respondError(w, http.StatusBadRequest, alreadyCompletedMessage)
	default:
		slog.Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("response encoding failed", "error", err)
	}
}
