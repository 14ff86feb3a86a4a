package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/service"
)

// envelope is the body of every successful single-record response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// listEnvelope is the body of a category listing.
type listEnvelope struct {
	Data       any               `json:"data"`
	Pagination models.Pagination `json:"pagination"`
}

// errorEnvelope is the body of every error response.
type errorEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind, message string, fields map[string]string) {
	writeJSON(w, status, errorEnvelope{Success: false, Message: message, Error: kind, Errors: fields})
}

// writeValidation reports a single invalid request field.
func writeValidation(w http.ResponseWriter, field, msg string) {
	writeError(w, http.StatusBadRequest, service.KindValidation, "Validation failed", map[string]string{field: msg})
}

// serviceErrors maps each service error kind to its response.
var serviceErrors = map[string]struct {
	status  int
	message string
}{
	service.KindValidation:          {http.StatusBadRequest, "Validation failed"},
	service.KindNotFound:            {http.StatusNotFound, "Category not found"},
	service.KindInvalidParent:       {http.StatusBadRequest, "Parent category does not exist"},
	service.KindSelfParent:          {http.StatusBadRequest, "A category cannot be its own parent"},
	service.KindCycleDetected:       {http.StatusConflict, "The new parent is a subcategory of this category"},
	service.KindDuplicate:           {http.StatusConflict, "Category name already exists under this parent"},
	service.KindHasChildren:         {http.StatusConflict, "Category has subcategories and cannot be deleted"},
	service.KindInUse:               {http.StatusConflict, "Category is used by books and cannot be deleted"},
	service.KindInternalConsistency: {http.StatusInternalServerError, "Something went wrong"},
	service.KindInternal:            {http.StatusInternalServerError, "Something went wrong"},
}

// writeServiceError translates an error returned by CategoryService.
// Unexpected errors are logged with the request id and hidden from the
// client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := service.Kind(err)
	resp, ok := serviceErrors[kind]
	if !ok {
		kind = service.KindInternal
		resp = serviceErrors[kind]
	}

	if kind == service.KindInternal {
		slog.Error("category request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromCtx(r.Context()),
			"error", err,
		)
	}

	var fields map[string]string
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		fields = verr.Fields
	}
	writeError(w, resp.status, kind, resp.message, fields)
}
