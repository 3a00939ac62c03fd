package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kahawahub/kahawa/backend/internal/entity"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type pagedData struct {
	Items any `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: status < 400, Message: message})
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors
// surface as 500 with the detail hidden in production.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrValidation),
		errors.Is(err, entity.ErrInsufficientStock),
		errors.Is(err, entity.ErrInvalidTransition):
		respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrPriceMismatch):
		// No diagnostic leak: a tampered client sees only a generic hint.
		msg := "amount validation failed, please refresh your cart"
		if !h.production {
			msg = err.Error()
		}
		respondMessage(w, http.StatusBadRequest, msg)
	case errors.Is(err, entity.ErrForbidden):
		respondMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Request failed", "err", err)
		msg := "internal server error"
		if !h.production {
			msg = err.Error()
		}
		respondMessage(w, http.StatusInternalServerError, msg)
	}
}
