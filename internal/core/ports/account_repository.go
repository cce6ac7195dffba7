package ports

import (
	"context"

	"github.com/99minutos/accounts/internal/core/domain"
)

// AccountRepository defines the persistence operations for accounts.
// Create must return domain.ErrDuplicateUsername when the storage-level
// unique constraint on username rejects the write.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}
