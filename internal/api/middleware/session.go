package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

// SessionCookie carries the signed session token for browser clients.
const SessionCookie = "ACCOUNTS_SESSION"

// Context keys set by LoadSession.
const (
	CtxAccountID = "account_id"
	CtxUsername  = "username"
	CtxRoles     = "roles"
	CtxSessionID = "session_id"
)

// LoadSession resolves the session token, if any, and injects the session
// into context. Requests without a valid session continue anonymously.
func LoadSession(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c)
			if token == "" {
				return next(c)
			}

			session, err := auth.Authenticate(c.Request().Context(), token)
			switch {
			case errors.Is(err, domain.ErrSessionNotFound):
				return next(c)
			case err != nil:
				return err
			}

			c.Set(CtxAccountID, session.AccountID)
			c.Set(CtxUsername, session.Username)
			c.Set(CtxRoles, session.Roles)
			c.Set(CtxSessionID, session.ID)
			return next(c)
		}
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, _ := c.Get(CtxAccountID).(string); id == "" {
				return domain.ErrSessionNotFound
			}
			return next(c)
		}
	}
}

// SessionToken returns the bearer token, falling back to the session cookie.
func SessionToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

// ExpireCookie overwrites name with an already expired value.
func ExpireCookie(c echo.Context, name string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
