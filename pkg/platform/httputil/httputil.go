// Package httputil centralizes JSON encoding and domain error translation for
// HTTP handlers, so every endpoint emits the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "pitchfund/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies before decoding.
const maxBodyBytes = 1 << 20

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeValidation:         http.StatusUnprocessableEntity,
	dErrors.CodeAccessDenied:       http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeInvariantViolation: http.StatusUnprocessableEntity,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// ToHTTPStatus maps a domain error code to its response status.
func ToHTTPStatus(code dErrors.Code) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON writes a JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so infrastructure details never leak; validation
// errors carry the offending field.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{
		"error": string(code),
	}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body["error_description"] = de.Message
		}
		if field := dErrors.FieldOf(err); field != "" {
			body["field"] = field
		}
	}
	WriteJSON(w, ToHTTPStatus(code), body)
}

// Decode reads and unmarshals a JSON request body into T. A malformed body
// comes back as a coded invalid-input error ready for WriteError.
func Decode[T any](r *http.Request) (T, error) {
	var req T
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, dErrors.New(dErrors.CodeInvalidInput, "request body is required")
		}
		return req, dErrors.New(dErrors.CodeInvalidInput, "malformed request body")
	}
	return req, nil
}

// DecodeAndPrepare decodes the request body and writes the error response
// itself on failure, logging the reject.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	req, err := Decode[T](r)
	if err != nil {
		if logger != nil {
			logger.DebugContext(r.Context(), "request rejected", "error", err.Error())
		}
		WriteError(w, err)
		var zero T
		return zero, false
	}
	return req, true
}
