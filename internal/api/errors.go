package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pageza/macrolog/backend/internal/service"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrExtractionEmpty):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrModelCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as JSON. Internal errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	resp := ErrorResponse{Error: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	switch status {
	case http.StatusInternalServerError:
		resp.Error = "Internal Server Error"
	case http.StatusBadGateway:
		resp.Error = "The nutrition model could not be reached. Please try again."
	case http.StatusUnprocessableEntity:
		resp.Error = service.ErrExtractionEmpty.Error()
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}
