// Package api serves downloaded Black Marble artifacts as a STAC API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// STACError is a STAC API error body.
type STACError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"requestId,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeServerError      = "ServerError"
	ErrCodeStoreError       = "StorageError"
)

func writeBody(w http.ResponseWriter, status int, contentType string, v any) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response",
			slog.String("content_type", contentType),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// WriteJSON writes v as application/json.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/json", v)
}

// WriteGeoJSON writes v as application/geo+json.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	return writeBody(w, status, "application/geo+json", v)
}

// WriteError writes a STAC error body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeBody(w, status, "application/json", STACError{Code: code, Description: message})
}

// WriteBadRequest writes a 400 response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 response for a bad query parameter.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalError writes a 500 response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 response that carries the
// request id so it can be matched with the server log.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeBody(w, http.StatusInternalServerError, "application/json", STACError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// WriteStoreError writes a 502 response for artifact store failures.
func WriteStoreError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, ErrCodeStoreError, message)
}
