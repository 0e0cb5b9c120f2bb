package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the envelope every failed request is answered with.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, ErrorBody{Message: message})
}

// ErrorWithStack is Error plus a diagnostic trace. Only call it in development.
func ErrorWithStack(w http.ResponseWriter, r *http.Request, code int, message, stack string) {
	JSON(w, r, code, ErrorBody{Message: message, Stack: stack})
}
