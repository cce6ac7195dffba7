package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/accounts/internal/core/domain"
)

// inputValidator checks submissions against their `validate` tags and reports
// problems keyed by the submitted field name (the json tag).
type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &inputValidator{v: v}
}

// check returns nil or a *domain.ValidationError.
func (iv *inputValidator) check(in any) error {
	err := iv.v.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(domain.FieldErrors, len(ve))
	for _, fe := range ve {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return domain.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "plainPassword":
		switch fe.Tag() {
		case "required":
			return "Veuillez entrer un mot de passe."
		case "min":
			return fmt.Sprintf("Le mot de passe doit faire au moins %s caractères.", fe.Param())
		case "max":
			return fmt.Sprintf("Le mot de passe doit faire au plus %s caractères.", fe.Param())
		}
	case "agreeTerms":
		return "Vous devez accepter les conditions générales."
	}

	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", fe.Field(), fe.Tag())
	}
}
