package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorCode enum for machine-readable errors
type ErrorCode string

const (
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrForbidden    ErrorCode = "FORBIDDEN"    // Access Gate rejected the caller
	ErrUnauthorized ErrorCode = "UNAUTHORIZED" // No usable credentials at all
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrConflict     ErrorCode = "CONFLICT" // e.g. concurrent idempotent request
	ErrInternal     ErrorCode = "INTERNAL" // DB down, NATS down, anything we hide
)

// AppError separates what the caller may see from what the logs record.
type AppError struct {
	Code     ErrorCode // Machine code (for frontend logic)
	Message  string    // Safe user-facing message
	Internal error     // Original error (DB detail etc) - NEVER sent to the client
	Stack    string    // Stack trace for audit
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New captures the stack at the point the error is raised.
func New(code ErrorCode, msg string, internal error) *AppError {
	return &AppError{
		Code:     code,
		Message:  msg,
		Internal: internal,
		Stack:    string(debug.Stack()),
	}
}

func statusFor(code ErrorCode) int {
	switch code {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondError maps any error onto the wire format {error, message, request_id}.
// Errors that are not AppError are treated as internal so library detail never leaks.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	appErr, ok := err.(*AppError)
	if !ok {
		appErr = New(ErrInternal, "Unexpected system error", err)
	}

	status := statusFor(appErr.Code)

	logFields := []any{
		"req_id", reqID,
		"method", r.Method,
		"path", r.URL.Path,
		"code", appErr.Code,
		"user_msg", appErr.Message,
	}

	if status == http.StatusInternalServerError {
		// 500s get the full picture: wrapped error plus stack.
		logFields = append(logFields, "internal_err", appErr.Internal, "stack", appErr.Stack)
		slog.Error("Internal Server Error", logFields...)
	} else {
		if appErr.Internal != nil {
			logFields = append(logFields, "internal_details", appErr.Internal)
		}
		slog.Warn("Request Failed", logFields...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":      string(appErr.Code),
		"message":    appErr.Message,
		"request_id": reqID,
	})
}
