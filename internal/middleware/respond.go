package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody matches the error envelope written by the API handlers.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Success: false, Message: message, Error: kind})
}
