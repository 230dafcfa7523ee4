package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dcm-project/instance-dashboard/internal/api/server"
	"github.com/dcm-project/instance-dashboard/internal/service"
)

const problemContentType = "application/problem+json"

// newError creates an RFC 7807 compliant error response.
func newError(errType, title, detail string, status int) server.Error {
	return server.Error{
		Type:   errType,
		Title:  title,
		Detail: &detail,
		Status: &status,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteProblem writes e with the status it carries.
func WriteProblem(w http.ResponseWriter, e server.Error) {
	status := http.StatusInternalServerError
	if e.Status != nil {
		status = *e.Status
	}
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(e)
}

// ParamErrorHandler reports parameters that could not be bound.
func ParamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	WriteProblem(w, newError("invalid-parameter", "Invalid parameter", err.Error(), http.StatusBadRequest))
}

// handleServiceError converts a service error to a problem response.
func handleServiceError(w http.ResponseWriter, err error, errType, title string) {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Code {
		case service.ErrCodeValidation:
			WriteProblem(w, newError("validation-error", "Validation failed", svcErr.Message, http.StatusBadRequest))
			return
		case service.ErrCodeNotConfigured:
			WriteProblem(w, newError("not-configured", "Dashboard not configured", svcErr.Message, http.StatusConflict))
			return
		}
	}
	WriteProblem(w, newError(errType, title, err.Error(), http.StatusInternalServerError))
}
