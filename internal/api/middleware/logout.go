package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/api/metrics"
	"github.com/99minutos/accounts/internal/core/ports"
)

// LogoutInterceptor ends the current session when path is requested. The
// route's own handler is never reached while this middleware is installed.
func LogoutInterceptor(auth ports.AuthService, path string, secureCookie bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path != path {
				return next(c)
			}

			if err := auth.Logout(c.Request().Context(), SessionToken(c)); err != nil {
				return err
			}
			ExpireCookie(c, SessionCookie, secureCookie)
			metrics.LogoutsTotal.Inc()

			return c.JSON(http.StatusOK, map[string]string{
				"status":   "logged out",
				"redirect": "/login",
			})
		}
	}
}
