package middleware

import (
	"context"

	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

type stubAuthService struct {
	sessions  map[string]*domain.Session
	authErr   error
	loggedOut []string
}

func (s *stubAuthService) Login(context.Context, string, string) (*ports.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}

func (s *stubAuthService) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	session, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubAuthService) Logout(_ context.Context, token string) error {
	s.loggedOut = append(s.loggedOut, token)
	delete(s.sessions, token)
	return nil
}

func (s *stubAuthService) Me(context.Context, string) (*domain.Account, error) {
	return nil, domain.ErrAccountNotFound
}

func (s *stubAuthService) RecordFailure(context.Context, string, string, error) error { return nil }

func (s *stubAuthService) LastAttempt(context.Context, string) (domain.LoginAttempt, error) {
	return domain.LoginAttempt{}, nil
}
