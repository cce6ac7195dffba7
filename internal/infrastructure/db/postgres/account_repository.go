package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/accounts/internal/core/domain"
)

// DBTX is the part of *pgxpool.Pool the repository needs. pgxmock pools
// satisfy it too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id::text, username, email, address, phone, password_hash, roles, profile_image, created_at, updated_at`

const (
	selectByUsername = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	selectByID       = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1::uuid`

	insertAccount = `INSERT INTO accounts (id, username, email, address, phone, password_hash, roles, profile_image, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updatePasswordHash = `UPDATE accounts SET password_hash = $2, updated_at = $3 WHERE id = $1::uuid`
)

// AccountRepository stores accounts in the accounts table. The table's
// unique constraint on username is what rejects concurrent duplicates.
type AccountRepository struct {
	db  DBTX
	now func() time.Time
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, selectByUsername, domain.CanonicalUsername(username))
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, selectByID, id)
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	rec := account.Record()
	if rec.CreatedAt.IsZero() {
		now := r.now()
		rec.CreatedAt, rec.UpdatedAt = now, now
	}
	roles := rec.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err := r.db.Exec(ctx, insertAccount,
		rec.ID,
		rec.Username,
		rec.Email,
		rec.Address,
		rec.Phone,
		rec.PasswordHash,
		roles,
		rec.ProfileImageRef,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, domain.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	return domain.RestoreAccount(rec), nil
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx, updatePasswordHash, id, hash, r.now())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) findOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	var rec domain.AccountRecord
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Username,
		&rec.Email,
		&rec.Address,
		&rec.Phone,
		&rec.PasswordHash,
		&rec.Roles,
		&rec.ProfileImageRef,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
			// malformed uuid
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return domain.RestoreAccount(rec), nil
}
