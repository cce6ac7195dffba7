package ports

import (
	"context"
	"time"

	"github.com/99minutos/accounts/internal/core/domain"
)

type SessionStore interface {
	Create(ctx context.Context, session *domain.Session, ttl time.Duration) error
	// Get returns domain.ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete is a no-op for unknown sessions.
	Delete(ctx context.Context, id string) error
}

// AttemptStore keeps the last failed login per client so the login form can
// be prefilled once.
type AttemptStore interface {
	Remember(ctx context.Context, key string, attempt domain.LoginAttempt, ttl time.Duration) error
	// Consume returns and forgets the attempt. A missing key yields a zero
	// attempt and no error.
	Consume(ctx context.Context, key string) (domain.LoginAttempt, error)
}
