package errorhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ecobin/ecobin-api/internal/pkg/database"
	"github.com/ecobin/ecobin-api/internal/pkg/logger"
	"github.com/ecobin/ecobin-api/internal/pkg/response"
)

// HandleError logs the failure with request context and writes the error body.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := logger.FromContext(ctx).Error().
		Str("error_code", code).
		Str("error_message", message).
		Int("status_code", status)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg("Request error")

	response.ErrorWithError(w, status, code, message, err)
}

// HandleStorageError maps persistence failures to 503 so clients retry with
// backoff. Anything else is an unexpected 500.
func HandleStorageError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrStorage) || errors.Is(err, context.DeadlineExceeded) {
		HandleError(ctx, w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage temporarily unavailable, retry later", err)
		return
	}
	HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
}

// HandlePanicError logs a recovered panic and writes a 500.
func HandlePanicError(ctx context.Context, w http.ResponseWriter, panicErr interface{}, stackTrace string) {
	logger.FromContext(ctx).Error().
		Interface("panic_error", panicErr).
		Str("panic_stack", stackTrace).
		Msg("Request panic error")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	info := &response.ErrorInfo{
		Code:    "PANIC_ERROR",
		Message: "Internal server panic",
	}
	if response.TracesExposed() {
		info.ErrorTrace = stackTrace
	}
	json.NewEncoder(w).Encode(response.Response{Success: false, Error: info})
}

// LogExternalServiceError logs errors from external service calls
func LogExternalServiceError(ctx context.Context, service, endpoint string, statusCode int, err error, body string) {
	logger.FromContext(ctx).Error().
		Str("external_service", service).
		Str("endpoint", endpoint).
		Int("status_code", statusCode).
		Err(err).
		Str("response_body", truncateString(body, 1000)).
		Msg("External service error")
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "...<truncated>"
	}
	return s
}
