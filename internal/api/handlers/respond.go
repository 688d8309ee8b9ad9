package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	middleware "github.com/markdave123-py/Clausewise/internal/api/middlewares"
	"github.com/markdave123-py/Clausewise/internal/logger"
	"github.com/markdave123-py/Clausewise/internal/models"
	"github.com/markdave123-py/Clausewise/internal/services"
)

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its client representation and logs it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	de := services.AsDomainError(err)
	if de.Status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", "code", de.Code, "error", err)
	} else {
		logger.Warn(r.Context(), "request rejected", "code", de.Code, "error", err)
	}
	writeJSON(w, de.Status, errorBody{Error: errorPayload{Code: de.Code, Message: de.Message, Details: de.Details}})
}

func badRequest(message string) error {
	return &services.DomainError{Status: http.StatusBadRequest, Code: services.CodeValidation, Message: message}
}

// maxJSONBytes bounds small JSON bodies; markup bodies use the upload limit.
const maxJSONBytes = 1 << 20

// decodeJSON reads a JSON body of at most limit bytes into v. An empty body
// leaves v untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, optional bool, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return tooLargeError(limit)
	}
	if err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}

func tooLargeError(limit int64) error {
	return &services.DomainError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    services.CodeValidation,
		Message: fmt.Sprintf("request body exceeds %d bytes", limit),
	}
}

func currentUser(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}
