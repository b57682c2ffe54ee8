package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	RequestIDContextKey = "request_id"

	maxRequestIDLength = 128
)

// RequestID propagates a caller supplied X-Request-ID, or assigns a new one,
// so request logs and error bodies can be correlated.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.NewString()
			}

			c.Set(RequestIDContextKey, requestID)
			c.Request().Header.Set(echo.HeaderXRequestID, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c echo.Context) string {
	if requestID, ok := c.Get(RequestIDContextKey).(string); ok {
		return requestID
	}
	return ""
}
