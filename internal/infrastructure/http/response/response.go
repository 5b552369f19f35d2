package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mrops-br/product-store-api/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an error response with the given status
func Error(w http.ResponseWriter, status int, err error) {
	body := ErrorResponse{
		Error:   kind(status),
		Message: err.Error(),
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Details = verr.Fields
	}

	JSON(w, status, body)
}

// FromError sends an error response with the status matching err.
// Validation errors map to 400, missing products to 404, anything else to 500.
func FromError(w http.ResponseWriter, err error) {
	Error(w, StatusOf(err), err)
}

// StatusOf returns the HTTP status for err
func StatusOf(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func kind(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusInternalServerError:
		return "internal_server_error"
	default:
		return "error"
	}
}
