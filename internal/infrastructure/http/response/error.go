package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/parish/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details,omitempty"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// BadRequest sends a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, "INVALID_ARGUMENT", message, http.StatusBadRequest)
}

// ValidationError sends a 400 validation error with field details.
func ValidationError(w http.ResponseWriter, field, issue string) {
	write(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Details: []ErrorField{
				{Field: field, Issue: issue},
			},
		},
	})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, "NOT_FOUND", resource+" not found", http.StatusNotFound)
}

// QueryFailed sends a 502 naming the backend query that failed.
// Backend messages stay server-side; only the query kind and code are exposed.
func QueryFailed(w http.ResponseWriter, qerr *domain.QueryError) {
	details := []ErrorField{{Field: "query", Issue: string(qerr.Query)}}
	if qerr.Code != "" {
		details = append(details, ErrorField{Field: "code", Issue: qerr.Code})
	}
	write(w, http.StatusBadGateway, ErrorResponse{
		Error: ErrorDetail{
			Code:    "QUERY_FAILED",
			Message: string(qerr.Query) + " query failed",
			Details: details,
		},
	})
}

// Timeout sends a 504 for queries cut short by cancellation or deadline.
func Timeout(w http.ResponseWriter) {
	Error(w, "QUERY_CANCELLED", "query was cancelled before completing", http.StatusGatewayTimeout)
}

// InternalError sends a 500 Internal Server Error.
// The error is logged server-side; the client gets a generic message.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "Internal server error", "error", err)
	}
	Error(w, "INTERNAL_ERROR", "an internal error occurred", http.StatusInternalServerError)
}

// Error sends a generic error response.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	write(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func write(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}

// FromDomainError maps domain errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var qerr *domain.QueryError

	switch {
	// Invalid input (400)
	case errors.Is(err, domain.ErrInvalidArgument):
		BadRequest(w, err.Error())

	// Unknown resource (404)
	case errors.Is(err, domain.ErrResourceNotFound):
		NotFound(w, "resource")

	// Cancelled or timed out (504)
	case errors.Is(err, domain.ErrCancelled):
		Timeout(w)

	// Backend failures (502)
	case errors.As(err, &qerr):
		QueryFailed(w, qerr)

	default:
		InternalError(w, r, err)
	}
}
