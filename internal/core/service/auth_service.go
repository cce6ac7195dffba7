package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/ports"
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultAttemptTTL   = 10 * time.Minute
	invalidCredentials  = "Invalid credentials."
	timingDummyPassword = "timing-equaliser-password"
)

// AuthConfig holds the session settings of the AuthService.
type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
	AttemptTTL time.Duration
}

// AuthService implements login, session lookup and logout.
type AuthService struct {
	repo     ports.AccountRepository
	hasher   ports.PasswordHasher
	sessions ports.SessionStore
	attempts ports.AttemptStore
	secret   []byte
	ttl      time.Duration
	attTTL   time.Duration
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string

	dummyOnce sync.Once
	dummy     string
}

func NewAuthService(
	repo ports.AccountRepository,
	hasher ports.PasswordHasher,
	sessions ports.SessionStore,
	attempts ports.AttemptStore,
	cfg AuthConfig,
	log zerolog.Logger,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = defaultAttemptTTL
	}
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		attempts: attempts,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.SessionTTL,
		attTTL:   cfg.AttemptTTL,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

type sessionClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// Login verifies the credentials and opens a session. An unknown username and
// a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = domain.CanonicalUsername(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.spendVerify(password)
			s.log.Info().Str("username", username).Msg("login rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	account.SetPlainPassword(password)
	defer account.EraseCredentials()

	ok, err := s.hasher.Verify(account.PlainPassword(), account.PasswordHash())
	if err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID()).Msg("stored credential unreadable")
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		s.log.Info().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	s.upgradeCredential(ctx, account)

	now := s.now()
	session := &domain.Session{
		ID:        s.newID(),
		AccountID: account.ID(),
		Username:  account.Username(),
		Roles:     account.EffectiveRoles(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session, s.ttl); err != nil {
		return nil, fmt.Errorf("login: create session: %w", err)
	}
	account.EraseCredentials()

	token, err := s.signToken(session)
	if err != nil {
		_ = s.sessions.Delete(ctx, session.ID)
		return nil, fmt.Errorf("login: sign token: %w", err)
	}

	s.log.Info().
		Str("account_id", account.ID()).
		Str("session_id", session.ID).
		Msg("login succeeded")

	return &ports.LoginResult{Account: account, Session: session, Token: token}, nil
}

// Authenticate resolves a session token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims, err := s.parseToken(token, true)
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	session, err := s.sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if session.AccountID != claims.Subject {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Logout ends the session behind token. Unknown, expired or malformed tokens
// are accepted so repeated calls are harmless.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parseToken(token, false)
	if err != nil || claims.ID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, claims.ID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("session_id", claims.ID).Msg("session closed")
	return nil
}

// Me returns the account behind an authenticated session.
func (s *AuthService) Me(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return account, nil
}

// RecordFailure remembers the last attempted username for the client
// identified by key. The message is generic whatever the cause.
func (s *AuthService) RecordFailure(ctx context.Context, key, username string, _ error) error {
	if key == "" {
		return nil
	}
	attempt := domain.LoginAttempt{Username: username, Error: invalidCredentials}
	if err := s.attempts.Remember(ctx, key, attempt, s.attTTL); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

// LastAttempt returns and forgets the last failed attempt of key.
func (s *AuthService) LastAttempt(ctx context.Context, key string) (domain.LoginAttempt, error) {
	if key == "" {
		return domain.LoginAttempt{}, nil
	}
	attempt, err := s.attempts.Consume(ctx, key)
	if err != nil {
		return domain.LoginAttempt{}, fmt.Errorf("last login attempt: %w", err)
	}
	return attempt, nil
}

// spendVerify runs a verification against a throwaway credential so unknown
// usernames cost about as much as wrong passwords.
func (s *AuthService) spendVerify(password string) {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash(timingDummyPassword)
	})
	if s.dummy != "" {
		_, _ = s.hasher.Verify(password, s.dummy)
	}
}

// upgradeCredential rehashes with the current parameters. Failures only cost
// a log line; the login itself already succeeded.
func (s *AuthService) upgradeCredential(ctx context.Context, account *domain.Account) {
	if !s.hasher.NeedsRehash(account.PasswordHash()) {
		return
	}
	hash, err := s.hasher.Hash(account.PlainPassword())
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID()).Msg("credential rehash failed")
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, account.ID(), hash); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID()).Msg("credential rehash not stored")
		return
	}
	account.SetPasswordHash(hash)
	s.log.Info().Str("account_id", account.ID()).Msg("credential rehashed")
}

func (s *AuthService) signToken(session *domain.Session) (string, error) {
	claims := sessionClaims{
		Username: session.Username,
		Roles:    session.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.AccountID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *AuthService) parseToken(token string, validate bool) (*sessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if !validate {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
