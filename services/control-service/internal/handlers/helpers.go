package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mohamedlandolsi/greenhouse-management-system/pkg/apperrors"
)

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func requireQueryParam(w http.ResponseWriter, r *http.Request, paramName string) (string, bool) {
	value := r.URL.Query().Get(paramName)
	if value == "" {
		http.Error(w, paramName+" query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}

func optionalQueryParam(r *http.Request, paramName string) *string {
	if value := r.URL.Query().Get(paramName); value != "" {
		return &value
	}
	return nil
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// DefaultPagination contains the default pagination values.
var DefaultPagination = Pagination{Limit: 50, Offset: 0}

func parsePagination(r *http.Request) Pagination {
	p := DefaultPagination
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		p.Limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		p.Offset = o
	}
	return p
}

// handleError logs err and writes the status mapped from the error taxonomy.
func handleError(w http.ResponseWriter, err error, message string, attrs ...any) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(message, append([]any{"error", err}, attrs...)...)
	} else {
		slog.Warn(message, append([]any{"error", err}, attrs...)...)
	}
	http.Error(w, message+": "+err.Error(), status)
}
