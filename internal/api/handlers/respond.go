package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wonny/stocklens/internal/contracts"
	"github.com/wonny/stocklens/pkg/logger"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, Envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Envelope{Success: false, Error: message})
}

// respondServiceError maps the error taxonomy onto HTTP.
// NotFound is not an error for the API: the data is null.
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondData(w, http.StatusOK, nil)
	case errors.Is(err, contracts.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contracts.ErrSourceUnavailable):
		respondError(w, http.StatusBadGateway, "market data source unavailable")
	default:
		log.WithError(err).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dest)
	if err != nil && !errors.Is(err, io.EOF) {
		return &contracts.ValidationError{Field: "body", Reason: "invalid JSON"}
	}
	return nil
}
