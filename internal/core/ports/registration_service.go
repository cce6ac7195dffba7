package ports

import (
	"context"

	"github.com/99minutos/accounts/internal/core/domain"
)

// RegistrationInput is a registration form submission.
type RegistrationInput struct {
	Username      string `json:"username"      validate:"required,max=180"`
	Email         string `json:"email"         validate:"required,email,max=255"`
	Phone         string `json:"telephone"     validate:"max=30"`
	Address       string `json:"adresse"       validate:"max=255"`
	PlainPassword string `json:"plainPassword" validate:"required,min=6,max=4096"`
	AgreeTerms    bool   `json:"agreeTerms"    validate:"eq=true"`
}

type RegistrationService interface {
	Register(ctx context.Context, in RegistrationInput) (*domain.Account, error)
}
