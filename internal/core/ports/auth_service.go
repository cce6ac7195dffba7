package ports

import (
	"context"

	"github.com/99minutos/accounts/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Account *domain.Account
	Session *domain.Session
	Token   string
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, accountID string) (*domain.Account, error)
	RecordFailure(ctx context.Context, key, username string, cause error) error
	LastAttempt(ctx context.Context, key string) (domain.LoginAttempt, error)
}
