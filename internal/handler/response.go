package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetrecon/internal/repository"
	"fleetrecon/internal/scheduler"
	"fleetrecon/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, service.ErrInvalidDriverID):
		return http.StatusBadRequest

	// Another cycle holds the queue.
	case errors.Is(err, scheduler.ErrCycleRunning),
		errors.Is(err, service.ErrCycleInProgress):
		return http.StatusConflict

	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
