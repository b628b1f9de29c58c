// Package response provides the JSON response envelope and error mapping
// shared by all HTTP handlers.
package response

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"

	domainerrors "github.com/refhq/refhq-server/internal/errors"
	"github.com/refhq/refhq-server/internal/store"
)

// Envelope is the consistent JSON response structure.
type Envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *ErrorDoc `json:"error,omitempty"`
}

// ErrorDoc carries a machine-readable error to API clients.
type ErrorDoc struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code using json/v2.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: status < 400,
		Data:    data,
	}
	if err := json.MarshalWrite(w, envelope); err != nil {
		if logger != nil {
			logger.Error("failed to encode JSON response", "error", err)
		}
	}
}

// Success writes a 200 OK response.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status and code.
func Error(w http.ResponseWriter, status int, code, message string, details any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	envelope := Envelope{
		Success: false,
		Error:   &ErrorDoc{Code: code, Message: message, Details: details},
	}
	if err := json.MarshalWrite(w, envelope); err != nil {
		if logger != nil {
			logger.Error("failed to encode error response", "error", err)
		}
	}
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, string(domainerrors.CodeValidation), message, nil, logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, string(domainerrors.CodeUnauthorized), message, nil, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, "RATE_LIMITED", message, nil, logger)
}

// HandleError writes the HTTP response matching the error's type.
// Domain errors carry their own status and code; store errors map through
// their HTTP code; anything else becomes an opaque 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if domainerrors.As(err, &domainErr) {
		Error(w, domainErr.HTTPStatus(), string(domainErr.Code), domainErr.Message, domainErr.Details, logger)
		return
	}

	var storeErr *store.Error
	if domainerrors.As(err, &storeErr) {
		Error(w, storeErr.HTTPCode(), string(domainerrors.CodeInternal), storeErr.Message, nil, logger)
		return
	}

	if logger != nil {
		logger.Error("unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, string(domainerrors.CodeInternal), "internal server error", nil, logger)
}
