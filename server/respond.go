package server

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the envelope for every non-2xx API response.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Retry   *bool  `json:"retry,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string, retry *bool) {
	respondJSON(w, status, errorResponse{Error: message, Retry: retry})
}

func respondErrorDetails(w http.ResponseWriter, status int, message, details string, retry *bool) {
	respondJSON(w, status, errorResponse{Error: message, Details: details, Retry: retry})
}
