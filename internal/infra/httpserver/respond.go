package httpserver

import (
	"encoding/json"
	"net/http"
)

// errorBody is the envelope every failed request gets.
type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// apiError carries an HTTP status and a stable machine-readable code.
type apiError struct {
	status  int
	code    string
	message string
	details interface{}
}

func (e *apiError) Error() string { return e.message }

func badRequest(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "validation_error", message: message}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, errorBody{
		Success: false,
		Error:   errorDetail{Code: code, Message: message, Details: details},
	})
}
