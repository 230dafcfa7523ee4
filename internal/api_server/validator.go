package apiserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dcm-project/instance-dashboard/internal/api/server"
	"github.com/dcm-project/instance-dashboard/internal/handlers"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// requestValidator checks requests against the OpenAPI document. Paths the
// document does not describe are passed through to the router.
type requestValidator struct {
	router  routers.Router
	baseURL string
}

func newRequestValidator(swagger *openapi3.T, baseURL string) (*requestValidator, error) {
	// Routes are matched on the path relative to baseURL.
	doc := *swagger
	doc.Servers = nil

	router, err := gorillamux.NewRouter(&doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}
	return &requestValidator{router: router, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (v *requestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, v.baseURL+"/") {
			next.ServeHTTP(w, r)
			return
		}

		rr := r.Clone(r.Context())
		rr.URL.Path = strings.TrimPrefix(r.URL.Path, v.baseURL)
		rr.URL.RawPath = ""

		route, pathParams, err := v.router.FindRoute(rr)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    rr,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
				MultiError:         false,
			},
		}
		if err := openapi3filter.ValidateRequest(rr.Context(), input); err != nil {
			handlers.WriteProblem(w, validationError(err))
			return
		}

		// The validator consumed the body and left a fresh reader on the clone.
		r.Body = rr.Body
		next.ServeHTTP(w, r)
	})
}

func validationError(err error) server.Error {
	status := http.StatusBadRequest
	detail := err.Error()
	return server.Error{
		Type:   "validation-error",
		Title:  "Request does not match the API description",
		Detail: &detail,
		Status: &status,
	}
}
