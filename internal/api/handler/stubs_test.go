package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

type stubRegistrationService struct {
	registerFn func(ctx context.Context, in ports.RegistrationInput) (*domain.Account, error)
}

func (s *stubRegistrationService) Register(ctx context.Context, in ports.RegistrationInput) (*domain.Account, error) {
	return s.registerFn(ctx, in)
}

type stubAuthService struct {
	loginFn    func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	meFn       func(ctx context.Context, id string) (*domain.Account, error)
	attempts   map[string]domain.LoginAttempt
	recorded   []string
	recordKeys []string
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}

func (s *stubAuthService) Logout(context.Context, string) error { return nil }

func (s *stubAuthService) Me(ctx context.Context, id string) (*domain.Account, error) {
	return s.meFn(ctx, id)
}

func (s *stubAuthService) RecordFailure(_ context.Context, key, username string, _ error) error {
	s.recorded = append(s.recorded, username)
	s.recordKeys = append(s.recordKeys, key)
	if s.attempts == nil {
		s.attempts = map[string]domain.LoginAttempt{}
	}
	s.attempts[key] = domain.LoginAttempt{Username: username, Error: "Invalid credentials."}
	return nil
}

func (s *stubAuthService) LastAttempt(_ context.Context, key string) (domain.LoginAttempt, error) {
	a := s.attempts[key]
	delete(s.attempts, key)
	return a, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}
