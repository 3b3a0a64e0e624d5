package middleware

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/zenGate-Global/domain-verification/platform/go/problem"
)

// OpenAPIValidator validates requests against spec and answers violations with problem documents.
// Servers are cleared on a copy so that matching ignores the host.
func OpenAPIValidator(spec *openapi3.T) func(http.Handler) http.Handler {
	local := *spec
	local.Servers = nil

	return oapimiddleware.OapiRequestValidatorWithOptions(&local, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		SilenceServersWarning: true,
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			switch statusCode {
			case http.StatusNotFound:
				problem.Write(w, problem.New(statusCode, problem.TypeNotFound, "Route not found", message))
			case http.StatusMethodNotAllowed:
				problem.Write(w, problem.New(statusCode, problem.TypeValidation, "Method not allowed", message))
			default:
				problem.Write(w, problem.New(http.StatusBadRequest, problem.TypeValidation, "Invalid request", message))
			}
		},
	})
}
