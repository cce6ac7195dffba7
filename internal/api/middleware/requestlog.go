package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts/pkg/logger"
)

// RequestLogger stores a request-scoped child of log in the request context
// and writes one line per request once the response is rendered. Handler
// errors go through the HTTP error handler here so the line carries both the
// final status and the cause.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		HandleError: true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		BeforeNextFunc: func(c echo.Context) {
			req := c.Request()
			reqLog := logger.WithRequest(log, c.Response().Header().Get(echo.HeaderXRequestID), req.Method, c.Path())
			c.SetRequest(req.WithContext(reqLog.WithContext(req.Context())))
		},
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			l := logger.FromContext(c.Request().Context(), log)
			ev := l.Info()
			if v.Status >= 500 {
				ev = l.Error().Err(v.Error)
			}
			ev.Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
