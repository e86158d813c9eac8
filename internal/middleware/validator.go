package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/careplanner/backend/pkg/api"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OpenAPIValidator rejects requests whose parameters or body do not match
// doc with 400 VALIDATION_ERROR. Paths the document does not describe, such
// as /metrics, pass through untouched.
func OpenAPIValidator(doc *openapi3.T, logger *zap.Logger) (gin.HandlerFunc, error) {
	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}

	options := &openapi3filter.Options{
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(c *gin.Context) {
		route, pathParams, err := router.FindRoute(c.Request)
		if err != nil {
			if !errors.Is(err, routers.ErrPathNotFound) && !errors.Is(err, routers.ErrMethodNotAllowed) {
				logger.Warn("openapi route lookup failed", zap.Error(err))
			}
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options:    options,
		}
		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			details := err.Error()
			c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorResponse{
				Code:    api.CodeValidation,
				Message: "Request does not match the API schema",
				Details: &details,
			})
			return
		}

		c.Next()
	}, nil
}
