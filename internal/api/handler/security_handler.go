package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/api/metrics"
	"github.com/99minutos/accounts/internal/api/middleware"
	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

// LoginStateCookie identifies a client between a failed login and the next
// render of the login form.
const LoginStateCookie = "login_state"

// CookieConfig controls the cookies set by SecurityHandler.
type CookieConfig struct {
	Secure     bool
	SessionTTL time.Duration
	StateTTL   time.Duration
}

type SecurityHandler struct {
	auth    ports.AuthService
	cookies CookieConfig
}

func NewSecurityHandler(auth ports.AuthService, cookies CookieConfig) *SecurityHandler {
	return &SecurityHandler{auth: auth, cookies: cookies}
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"max=180"`
	Password string `json:"password" form:"password" validate:"max=4096"`
}

type loginFormResponse struct {
	LastUsername string `json:"last_username"`
	Error        string `json:"error,omitempty"`
}

type loginResponse struct {
	Account   *domain.Account `json:"account"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

type loginFailureResponse struct {
	Error        string `json:"error"`
	LastUsername string `json:"last_username"`
}

// LoginForm returns what the login form should be prefilled with: the last
// attempted username and error, each shown once.
//
// @Summary      Login form state
// @Tags         security
// @Produce      json
// @Success      200  {object}  loginFormResponse
// @Router       /login [get]
func (h *SecurityHandler) LoginForm(c echo.Context) error {
	var key string
	if ck, err := c.Cookie(LoginStateCookie); err == nil {
		key = ck.Value
	}

	attempt, err := h.auth.LastAttempt(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginFormResponse{
		LastUsername: attempt.Username,
		Error:        attempt.Error,
	})
}

// Login authenticates a username/password pair and opens a session.
//
// @Summary      Login
// @Tags         security
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  loginFailureResponse
// @Router       /login [post]
func (h *SecurityHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	// Oversized input is rejected like any other bad credential.
	if err := c.Validate(&req); err != nil {
		return h.rejectLogin(c, req.Username)
	}

	result, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			return h.rejectLogin(c, req.Username)
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		MaxAge:   int(h.cookies.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	middleware.ExpireCookie(c, LoginStateCookie, h.cookies.Secure)

	return c.JSON(http.StatusOK, loginResponse{
		Account:   result.Account,
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
	})
}

// Logout is served by middleware.LogoutInterceptor. Reaching this handler
// means the interceptor is not installed.
//
// @Summary      Logout
// @Tags         security
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /logout [post]
func (h *SecurityHandler) Logout(c echo.Context) error {
	return domain.ErrInterceptedRouteMisuse
}

// Me returns the account of the current session.
//
// @Summary      Current account
// @Tags         security
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *SecurityHandler) Me(c echo.Context) error {
	id, err := ctxAccountID(c)
	if err != nil {
		return err
	}

	account, err := h.auth.Me(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

func (h *SecurityHandler) rejectLogin(c echo.Context, username string) error {
	metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()

	err := h.auth.RecordFailure(c.Request().Context(), h.stateKey(c), username, domain.ErrInvalidCredentials)
	if err != nil {
		c.Logger().Warnf("record login failure: %v", err)
	}
	return c.JSON(http.StatusUnauthorized, loginFailureResponse{
		Error:        domain.ErrInvalidCredentials.Error(),
		LastUsername: username,
	})
}

// stateKey returns the client's login state key, issuing one when missing.
func (h *SecurityHandler) stateKey(c echo.Context) string {
	if ck, err := c.Cookie(LoginStateCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	key := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     LoginStateCookie,
		Value:    key,
		Path:     "/",
		MaxAge:   int(h.cookies.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}
