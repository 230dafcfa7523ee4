// Package server binds the dashboard API routes to a ServerInterface and
// defines the request and response bodies described by api/v1alpha1/openapi.yaml.
package server

import (
	"fmt"
	"net/http"

	"github.com/dcm-project/instance-dashboard/internal/instances"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Error is an RFC 7807 problem body.
type Error struct {
	Type   string  `json:"type"`
	Title  string  `json:"title"`
	Detail *string `json:"detail,omitempty"`
	Status *int    `json:"status,omitempty"`
}

type Health struct {
	Status   string  `json:"status"`
	Path     string  `json:"path"`
	Upstream *string `json:"upstream,omitempty"`
}

type Dashboard struct {
	State         string `json:"state"`
	Message       string `json:"message,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
	ApiStatus     int    `json:"apiStatus,omitempty"`
	InstanceCount int    `json:"instanceCount"`
}

type CredentialsStatus struct {
	ApiUrl           string `json:"apiUrl"`
	ApiKeyConfigured bool   `json:"apiKeyConfigured"`
}

type CredentialsRequest struct {
	ApiUrl *string `json:"apiUrl,omitempty"`
	ApiKey string  `json:"apiKey"`
}

type InstanceList struct {
	Instances []instances.Instance `json:"instances"`
	Count     int                  `json:"count"`
	Total     int                  `json:"total"`
}

type StatusTable struct {
	Statuses []instances.Presentation `json:"statuses"`
}

// ListInstancesParams defines parameters for ListInstances.
type ListInstancesParams struct {
	Search *string `form:"search,omitempty" json:"search,omitempty"`
	Status *string `form:"status,omitempty" json:"status,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (GET /dashboard)
	GetDashboard(w http.ResponseWriter, r *http.Request)
	// (POST /dashboard/reload)
	ReloadDashboard(w http.ResponseWriter, r *http.Request)
	// (GET /credentials)
	GetCredentials(w http.ResponseWriter, r *http.Request)
	// (PUT /credentials)
	PutCredentials(w http.ResponseWriter, r *http.Request)
	// (GET /instances)
	ListInstances(w http.ResponseWriter, r *http.Request, params ListInstancesParams)
	// (DELETE /instances/{instanceId})
	DeleteInstance(w http.ResponseWriter, r *http.Request, instanceId int64)
	// (POST /instances/{instanceId}/start)
	StartInstance(w http.ResponseWriter, r *http.Request, instanceId int64)
	// (POST /instances/{instanceId}/stop)
	StopInstance(w http.ResponseWriter, r *http.Request, instanceId int64)
	// (GET /statuses)
	ListStatuses(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError is passed to the error handler when a parameter
// cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper converts requests to handler arguments.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) ListInstances(w http.ResponseWriter, r *http.Request) {
	var params ListInstancesParams

	if err := runtime.BindQueryParameter("form", true, false, "search", r.URL.Query(), &params.Search); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "search", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &params.Status); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "status", Err: err})
		return
	}

	siw.Handler.ListInstances(w, r, params)
}

// instanceAction binds the instanceId path parameter before calling next.
func (siw *ServerInterfaceWrapper) instanceAction(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var instanceId int64

		err := runtime.BindStyledParameterWithOptions("simple", "instanceId", chi.URLParam(r, "instanceId"), &instanceId,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "instanceId", Err: err})
			return
		}

		next(w, r, instanceId)
	}
}

// HandlerFromMuxWithBaseURL registers every route of si on r under baseURL.
func HandlerFromMuxWithBaseURL(si ServerInterface, r chi.Router, baseURL string, errorHandler func(w http.ResponseWriter, r *http.Request, err error)) http.Handler {
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: errorHandler,
	}

	r.Group(func(r chi.Router) {
		r.Get(baseURL+"/health", si.GetHealth)
		r.Get(baseURL+"/dashboard", si.GetDashboard)
		r.Post(baseURL+"/dashboard/reload", si.ReloadDashboard)
		r.Get(baseURL+"/credentials", si.GetCredentials)
		r.Put(baseURL+"/credentials", si.PutCredentials)
		r.Get(baseURL+"/instances", wrapper.ListInstances)
		r.Delete(baseURL+"/instances/{instanceId}", wrapper.instanceAction(si.DeleteInstance))
		r.Post(baseURL+"/instances/{instanceId}/start", wrapper.instanceAction(si.StartInstance))
		r.Post(baseURL+"/instances/{instanceId}/stop", wrapper.instanceAction(si.StopInstance))
		r.Get(baseURL+"/statuses", si.ListStatuses)
	})

	return r
}
