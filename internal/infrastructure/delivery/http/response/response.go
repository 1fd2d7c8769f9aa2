// Package response writes the JSON response envelope.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// WriteJSON marshals the envelope and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, message, errorType string, data any, err error) {
	var errorMsg string
	if err != nil {
		errorMsg = err.Error()
	}

	r := Response{
		Message:   message,
		Error:     errorMsg,
		ErrorType: errorType,
		Data:      data,
	}

	bytes, marshalErr := json.Marshal(r)
	if marshalErr != nil {
		http.Error(w, marshalErr.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, writeErr := w.Write(bytes); writeErr != nil {
		http.Error(w, writeErr.Error(), http.StatusInternalServerError)
		return
	}
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, message, "", data, nil)
}

// Accepted writes a 202 envelope.
func Accepted(w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusAccepted, message, "", data, nil)
}

// BadRequest writes a 400 envelope with an error kind.
func BadRequest(w http.ResponseWriter, message, errorType string, err error) {
	WriteJSON(w, http.StatusBadRequest, message, errorType, nil, err)
}

// UnprocessableEntity writes a 422 envelope with an error kind.
func UnprocessableEntity(w http.ResponseWriter, message, errorType string, err error) {
	WriteJSON(w, http.StatusUnprocessableEntity, message, errorType, nil, err)
}

// NotFound writes a 404 envelope with an error kind.
func NotFound(w http.ResponseWriter, message, errorType string) {
	WriteJSON(w, http.StatusNotFound, message, errorType, nil, nil)
}

// InternalServerError writes a 500 envelope with an error kind.
func InternalServerError(w http.ResponseWriter, message, errorType string, err error) {
	WriteJSON(w, http.StatusInternalServerError, message, errorType, nil, err)
}
