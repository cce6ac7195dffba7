package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/api/metrics"
	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

const loginPath = "/login"

type RegistrationHandler struct {
	svc ports.RegistrationService
}

func NewRegistrationHandler(svc ports.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

type registerRequest struct {
	Username      string   `json:"username"      form:"username"`
	Email         string   `json:"email"         form:"email"`
	Phone         string   `json:"telephone"     form:"telephone"`
	Address       string   `json:"adresse"       form:"adresse"`
	PlainPassword string   `json:"plainPassword" form:"plainPassword"`
	AgreeTerms    checkbox `json:"agreeTerms"    form:"agreeTerms"`
}

func (r registerRequest) input() ports.RegistrationInput {
	return ports.RegistrationInput{
		Username:      r.Username,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
		PlainPassword: r.PlainPassword,
		AgreeTerms:    bool(r.AgreeTerms),
	}
}

// submission is what the form is redisplayed with. It never holds the password.
type submission struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"telephone"`
	Address    string `json:"adresse"`
	AgreeTerms bool   `json:"agreeTerms"`
}

func (r registerRequest) submission() submission {
	return submission{
		Username:   r.Username,
		Email:      r.Email,
		Phone:      r.Phone,
		Address:    r.Address,
		AgreeTerms: bool(r.AgreeTerms),
	}
}

type registerResponse struct {
	Account  *domain.Account `json:"account"`
	Redirect string          `json:"redirect"`
}

type validationResponse struct {
	Error      string             `json:"error"`
	Fields     domain.FieldErrors `json:"fields"`
	Submission submission         `json:"submission"`
}

// Register creates an account from a registration form.
//
// @Summary      Register a new account
// @Tags         accounts
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  validationResponse
// @Failure      500   {object}  map[string]string
// @Router       /register [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	account, err := h.svc.Register(c.Request().Context(), req.input())
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			result := "invalid"
			if errors.Is(err, domain.ErrDuplicateUsername) {
				result = "duplicate"
			}
			metrics.RegistrationsTotal.WithLabelValues(result).Inc()
			return c.JSON(http.StatusUnprocessableEntity, validationResponse{
				Error:      domain.ErrValidation.Error(),
				Fields:     ve.Fields,
				Submission: req.submission(),
			})
		}
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	c.Response().Header().Set(echo.HeaderLocation, loginPath)
	return c.JSON(http.StatusCreated, registerResponse{Account: account, Redirect: loginPath})
}
