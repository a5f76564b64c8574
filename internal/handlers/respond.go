package handlers

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform API response shape.
type Envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// respondData sends a successful response with a payload.
func respondData(w http.ResponseWriter, status int, message string, data any) {
	respondJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// respondList sends a successful response carrying a collection and its size.
func respondList(w http.ResponseWriter, data any, count int) {
	respondJSON(w, http.StatusOK, Envelope{Success: true, Count: &count, Data: data})
}

// respondError sends a failure envelope. The underlying error text is
// included only when err is non-nil.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	env := Envelope{Success: false, Message: message}
	if err != nil {
		env.Error = err.Error()
	}
	respondJSON(w, status, env)
}
