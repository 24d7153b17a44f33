package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Recovery converts a handler panic into a 500 error. The panic value and
// stack are logged with the request id.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				rid, _ := c.Get(requestIDKey).(string)
				logger.Error().
					Str("request_id", rid).
					Str("route", c.Path()).
					Str("path", c.Request().URL.Path).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
