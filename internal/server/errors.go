// internal/server/errors.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mcp-prenatal-log/internal/goals"
	"mcp-prenatal-log/internal/models"
	"mcp-prenatal-log/internal/resolver"
	"mcp-prenatal-log/internal/storage"
	"mcp-prenatal-log/internal/tracker"
	"mcp-prenatal-log/internal/units"
)

var errInvalidParams = errors.New("invalid parameters")

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// classify maps a service error to an HTTP status, a stable error code and
// an optional hint for the client.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, resolver.ErrFoodNotFound):
		return http.StatusNotFound, "food_not_found",
			"No source knows this food. Submit the entry again with manual nutrient values."
	case errors.Is(err, resolver.ErrResolutionUnavailable):
		return http.StatusServiceUnavailable, "resolution_unavailable",
			"Nutrient sources are unreachable right now. Retry later or submit manual nutrient values."
	case errors.Is(err, units.ErrIncompatibleUnit):
		return http.StatusUnprocessableEntity, "incompatible_unit",
			"Log the quantity in a unit of the same kind as the food's reference unit."
	case errors.Is(err, goals.ErrDateBeforePregnancyStart):
		return http.StatusBadRequest, "date_before_pregnancy_start", ""
	case errors.Is(err, goals.ErrPregnancyNotFound):
		return http.StatusNotFound, "pregnancy_not_found", ""
	case errors.Is(err, tracker.ErrEntryNotFound):
		return http.StatusNotFound, "entry_not_found", ""
	case errors.Is(err, storage.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id", ""
	case errors.Is(err, tracker.ErrInvalidRequest),
		errors.Is(err, goals.ErrInvalidGoal),
		errors.Is(err, models.ErrInvalidReference),
		errors.Is(err, errInvalidParams):
		return http.StatusBadRequest, "invalid_request", ""
	default:
		return http.StatusInternalServerError, "internal_error", ""
	}
}

func writeError(w http.ResponseWriter, status int, code, message, suggestion string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: code, Message: message, Suggestion: suggestion})
}
