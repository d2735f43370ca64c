// internal/app/system/apierr/apierr.go
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Error is a tagged domain error carrying a user-facing message and the HTTP
// status it maps to. Everything else that reaches the response writer is
// reported with the operation's generic fallback message and status 500; the
// original error only goes to the server log.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// New builds a domain error with an explicit status.
func New(message string, status int) *Error {
	return &Error{Message: message, Status: status}
}

func BadRequest(message string) *Error { return New(message, http.StatusBadRequest) }
func Forbidden(message string) *Error  { return New(message, http.StatusForbidden) }
func NotFound(message string) *Error   { return New(message, http.StatusNotFound) }
func Conflict(message string) *Error   { return New(message, http.StatusConflict) }

// envelope is the JSON error body: { "err": "...", "status": 400 }.
// The status is mirrored in both the envelope and the status line.
type envelope struct {
	Err    string `json:"err"`
	Status int    `json:"status"`
}

// Write renders err as the JSON error envelope. Domain errors keep their
// message and status; anything else becomes the fallback message with 500,
// and the underlying error is logged.
func Write(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	msg := fallback
	status := http.StatusInternalServerError

	var de *Error
	if errors.As(err, &de) {
		msg = de.Message
		if de.Status != 0 {
			status = de.Status
		}
	} else if log != nil {
		log.Error(fallback, zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Err: msg, Status: status})
}
