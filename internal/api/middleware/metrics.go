package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/api/metrics"
)

// Metrics records request latency by route pattern. It sits outside the
// request logger and panic recovery, so every response it observes has
// already been rendered, recovered panics included.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil && !c.Response().Committed {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
