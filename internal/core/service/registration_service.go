package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

type registrationService struct {
	repo      ports.AccountRepository
	hasher    ports.PasswordHasher
	validator *inputValidator
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewRegistrationService returns a RegistrationService implementation.
func NewRegistrationService(repo ports.AccountRepository, hasher ports.PasswordHasher, log zerolog.Logger) ports.RegistrationService {
	return &registrationService{
		repo:      repo,
		hasher:    hasher,
		validator: newInputValidator(),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Register validates the submission, hashes the password and stores a new
// account. Validation problems come back as *domain.ValidationError; nothing
// is written in that case.
func (s *registrationService) Register(ctx context.Context, in ports.RegistrationInput) (*domain.Account, error) {
	in.Username = domain.CanonicalUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	// 1. Field constraints.
	var fields domain.FieldErrors
	if err := s.validator.check(in); err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("register: validate: %w", err)
		}
		fields = ve.Fields
	}

	// 2. Username availability, reported alongside the other field errors.
	// The unique constraint in storage stays the authority for races.
	taken := false
	if _, bad := fields["username"]; !bad && in.Username != "" {
		_, err := s.repo.FindByUsername(ctx, in.Username)
		switch {
		case err == nil:
			taken = true
		case !errors.Is(err, domain.ErrAccountNotFound):
			return nil, fmt.Errorf("register: lookup username: %w", err)
		}
	}
	if taken {
		return nil, domain.NewValidationError(fields).WithDuplicateUsername()
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields)
	}

	// 3. Hash before anything is written.
	hash, err := s.hasher.Hash(in.PlainPassword)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	// 4. Build the account through its setters.
	now := s.now()
	account := domain.NewAccount(s.newID(), in.Username).
		SetEmail(in.Email).
		SetPhone(in.Phone).
		SetAddress(in.Address).
		SetPlainPassword(in.PlainPassword).
		SetPasswordHash(hash).
		SetTimestamps(now, now)
	account.EraseCredentials()

	// 5. Persist. A concurrent writer with the same username loses here.
	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			return nil, domain.NewDuplicateUsernameError()
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().
		Str("account_id", created.ID()).
		Str("username", created.Username()).
		Msg("account registered")

	return created, nil
}
