package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/api/middleware"
	"github.com/99minutos/accounts/internal/core/domain"
)

// ctxAccountID returns the account bound to the request by the session
// middleware. Its absence means the route was wired without RequireSession.
func ctxAccountID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxAccountID).(string)
	if id == "" {
		return "", domain.ErrSessionNotFound
	}
	return id, nil
}
