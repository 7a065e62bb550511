package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody is the error payload returned by the API. The message is an opaque diagnostic.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes the provided value to the response writer as JSON.
// A value that cannot be encoded becomes a 500 so the status never promises a body
// that was not written.
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: "internal error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// WriteError renders err, honouring the status and message of an AppError.
// Anything else is reported as an internal error without leaking its text.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Error()
		if message == "" {
			message = "internal error"
		}
		JSONError(w, status, message)
		return
	}
	JSONError(w, http.StatusInternalServerError, "internal error")
}
