package http

import (
	"errors"
	"fmt"
	"net/http"

	"commonthread/internal/http/handler"
	"commonthread/internal/http/middleware"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/logger"

	"github.com/labstack/echo/v4"
)

const unknownRequestID = "unknown"

// CustomHTTPErrorHandler renders every error that reaches echo as the
// standard error body. Router errors keep their status; everything else goes
// through the same mapping the handlers use, so 5xx bodies stay generic.
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		status  int
		code    string
		message string
	)

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		code = routerCode(status)
		message = fmt.Sprintf("%v", httpErr.Message)
		if status >= http.StatusInternalServerError {
			message = http.StatusText(status)
		}
	} else {
		status, code, message = handler.MapToPublicError(err)
	}

	requestID := middleware.GetRequestID(c)
	if requestID == "" {
		requestID = unknownRequestID
	}

	detail := logger.SanitizeLogMessage(err.Error())
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("internal_server_error request_id=%s status=%d error=%s", requestID, status, detail)
	} else {
		c.Logger().Warnf("client_error request_id=%s status=%d error=%s", requestID, status, detail)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, apperrors.NewResponse(code, message))
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func routerCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusMethodNotAllowed:
		return apperrors.CodeBadMethod
	case http.StatusRequestEntityTooLarge:
		return apperrors.CodeBodyTooLarge
	case http.StatusUnauthorized:
		return apperrors.CodeInvalidToken
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	default:
		if status >= http.StatusInternalServerError {
			return apperrors.CodeInternal
		}
		return apperrors.CodeBadRequest
	}
}
