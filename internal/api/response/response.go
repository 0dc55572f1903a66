// Package response writes the JSON envelopes returned by the HTTP API.
package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// SuccessResponse represents a successful API response with data.
type SuccessResponse struct {
	Data any `json:"data"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		// Headers are already sent; nothing useful can be written on failure.
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, err error) {
	body := ErrorResponse{
		Error: http.StatusText(status),
		Code:  status,
	}
	if err != nil {
		body.Message = err.Error()
	}
	JSON(w, status, body)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadRequest, err)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, err error) {
	Error(w, http.StatusNotFound, err)
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter, err error) {
	Error(w, http.StatusMethodNotAllowed, err)
}

// UnsupportedMediaType writes a 415 Unsupported Media Type response.
func UnsupportedMediaType(w http.ResponseWriter, err error) {
	Error(w, http.StatusUnsupportedMediaType, err)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, err error) {
	Error(w, http.StatusInternalServerError, err)
}

// BadGateway writes a 502 Bad Gateway response.
func BadGateway(w http.ResponseWriter, err error) {
	Error(w, http.StatusBadGateway, err)
}

// ServiceUnavailable writes a 503 Service Unavailable response.
func ServiceUnavailable(w http.ResponseWriter, err error) {
	Error(w, http.StatusServiceUnavailable, err)
}
