// Package httputil provides shared HTTP helpers for the uidgen API.
//
// Responses are JSON unless the client asks for MessagePack through the
// Accept header. Identifiers marshal as decimal strings in JSON and as
// native integers in MessagePack.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/shamaton/msgpack"
)

// Content types.
const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error" msgpack:"error"`
	Message string `json:"message" msgpack:"message"`
}

// WantsMsgpack reports whether the request prefers MessagePack.
func WantsMsgpack(r *http.Request) bool {
	if r == nil {
		return false
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, ContentTypeMsgpack) || strings.Contains(accept, "application/x-msgpack")
}

// Write encodes data in the format the request asked for.
func Write(w http.ResponseWriter, r *http.Request, status int, data any) {
	if WantsMsgpack(r) {
		WriteMsgpack(w, status, data)
		return
	}
	WriteJSON(w, status, data)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// WriteMsgpack writes a MessagePack response with the given status code.
// An encoding failure is reported as a JSON 500 instead.
func WriteMsgpack(w http.ResponseWriter, status int, data any) {
	if data == nil {
		w.Header().Set("Content-Type", ContentTypeMsgpack)
		w.WriteHeader(status)
		return
	}
	body, err := msgpack.Marshal(data)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "encoding_failed", Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", ContentTypeMsgpack)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteError writes an error response with the given status code.
func WriteError(w http.ResponseWriter, r *http.Request, status int, errCode, message string) {
	Write(w, r, status, ErrorResponse{Error: errCode, Message: message})
}

// WriteOK writes a 200 OK response with data.
func WriteOK(w http.ResponseWriter, r *http.Request, data any) {
	Write(w, r, http.StatusOK, data)
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, errCode, message string) {
	WriteError(w, r, http.StatusBadRequest, errCode, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, r *http.Request, errCode, message string) {
	WriteError(w, r, http.StatusNotFound, errCode, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, r *http.Request, errCode, message string) {
	WriteError(w, r, http.StatusInternalServerError, errCode, message)
}

// WriteServiceUnavailable writes a 503 Service Unavailable response.
func WriteServiceUnavailable(w http.ResponseWriter, r *http.Request, errCode, message string) {
	WriteError(w, r, http.StatusServiceUnavailable, errCode, message)
}

// WriteTooManyRequests writes a 429 with a Retry-After header in seconds.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfter int, errCode, message string) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteError(w, r, http.StatusTooManyRequests, errCode, message)
}

// DecodeJSON reads a JSON request body into v. An empty body leaves v
// untouched and returns nil.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", MaxBodyBytes)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
