package handler

import (
	"net/http"

	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/logger"

	"github.com/labstack/echo/v4"
)

func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, apperrors.NewResponse(code, message))
}

// respondSuccess writes {"success": true} merged with fields.
func respondSuccess(c echo.Context, status int, fields map[string]interface{}) error {
	body := map[string]interface{}{jsonKeySuccess: true}
	for k, v := range fields {
		body[k] = v
	}
	return c.JSON(status, body)
}

// handleError maps err to its public status and code. Server-side failures
// are logged with the request and answered with a generic message.
func handleError(c echo.Context, err error) error {
	status, code, message := MapToPublicError(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf(logInternalErrorFmt, c.Request().Method, c.Path(), logger.SanitizeLogMessage(err.Error()))
	}
	return respondError(c, status, code, message)
}
