package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homestock/internal/auth"
	"homestock/internal/client"
	"homestock/internal/service"
)

// statusFor maps a domain or client error onto the status the dashboard answers with.
func statusFor(err error) int {
	var (
		validation *service.ValidationError
		apiErr     *client.APIError
	)
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, client.ErrUnreachable):
		return http.StatusBadGateway
	case errors.As(err, &validation), errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, client.ErrNoGroup):
		return http.StatusConflict
	case errors.Is(err, service.ErrExportDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers an /api request. Unauthorized responses point the browser at the login
// page because the session has already been dropped by then.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": errorMessage(err)}

	var validation *service.ValidationError
	switch {
	case status == http.StatusUnauthorized:
		c.Header("Location", "/login")
		body["redirect"] = "/login"
	case errors.As(err, &validation):
		body["field"] = validation.Field
	}
	c.AbortWithStatusJSON(status, body)
}

func errorMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, client.ErrUnreachable):
		return client.ErrUnreachable.Error()
	case errors.Is(err, client.ErrNoGroup):
		return client.ErrNoGroup.Error()
	default:
		return err.Error()
	}
}
