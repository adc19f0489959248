package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout bounds handler execution. The response is buffered the way
// http.TimeoutHandler does it: a handler that overruns keeps writing into a
// discarded buffer while the client receives 503 with the body below, so a
// late handler never races the committed timeout response. The handler sees
// the deadline on its request context and should give up when it fires.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return echomw.TimeoutWithConfig(echomw.TimeoutConfig{
		Timeout:      timeout,
		ErrorMessage: `{"error":"request processing exceeded the allowed time limit"}`,
	})
}
