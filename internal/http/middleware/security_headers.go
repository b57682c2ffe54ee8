package middleware

import (
	"github.com/labstack/echo/v4"
)

// apiSecurityHeaders suit a JSON-only API: nothing it serves should be
// framed, sniffed or allowed to load sub-resources.
var apiSecurityHeaders = map[string]string{
	"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
}

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for k, v := range apiSecurityHeaders {
				h.Set(k, v)
			}
			h.Del(echo.HeaderServer)
			return next(c)
		}
	}
}
