// Package api provides the HTTP handlers for the shelfscan JSON API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/shelfscan/internal/app"
)

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAppError maps err onto a status code and the user-facing message.
func writeAppError(w http.ResponseWriter, err error) {
	category := app.Classify(err)
	writeJSON(w, StatusFor(category), errorResponse{
		Error:    app.Describe(err),
		Category: string(category),
	})
}

// StatusFor returns the HTTP status reported for an error category.
func StatusFor(category app.Category) int {
	switch category {
	case app.CategoryNone:
		return http.StatusOK
	case app.CategoryInvalidItem, app.CategoryNoBarcode:
		return http.StatusBadRequest
	case app.CategoryPermissionDenied:
		return http.StatusForbidden
	case app.CategoryNotFound:
		return http.StatusNotFound
	case app.CategoryDuplicateItem, app.CategoryBusy:
		return http.StatusConflict
	case app.CategoryDeviceMissing, app.CategoryHardwareBusy, app.CategoryDecoderMissing:
		return http.StatusServiceUnavailable
	case app.CategoryTimeout:
		return http.StatusGatewayTimeout
	case app.CategoryCancelled:
		// Matches nginx's "client closed request".
		return 499
	default:
		return http.StatusInternalServerError
	}
}
