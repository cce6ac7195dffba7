package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99minutos/accounts/internal/core/domain"
)

// stubAccountRepo enforces username uniqueness under a lock, like a unique
// index would.
type stubAccountRepo struct {
	mu        sync.Mutex
	byName    map[string]domain.AccountRecord
	createErr error
	findErr   error
	creates   int
	rehashed  map[string]string
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		byName:   make(map[string]domain.AccountRecord),
		rehashed: make(map[string]string),
	}
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	rec, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return domain.RestoreAccount(rec), nil
}

func (r *stubAccountRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byName {
		if rec.ID == id {
			return domain.RestoreAccount(rec), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byName[a.Username()]; exists {
		return nil, domain.ErrDuplicateUsername
	}
	rec := a.Record()
	r.byName[a.Username()] = rec
	r.creates++
	return domain.RestoreAccount(rec), nil
}

func (r *stubAccountRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, rec := range r.byName {
		if rec.ID == id {
			rec.PasswordHash = hash
			r.byName[name] = rec
			r.rehashed[id] = hash
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (r *stubAccountRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName)
}

// plainHasher is a deterministic stand-in used where the hash itself does not
// matter.
type plainHasher struct {
	hashErr error
	rehash  bool
	hashed  atomic.Int32
}

func (h *plainHasher) Hash(plain string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	h.hashed.Add(1)
	return "hashed:" + plain, nil
}

func (h *plainHasher) Verify(plain, credential string) (bool, error) {
	return credential == "hashed:"+plain, nil
}

func (h *plainHasher) NeedsRehash(string) bool { return h.rehash }

type stubSessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	createErr error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessionStore) Create(_ context.Context, sess *domain.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type stubAttemptStore struct {
	attempts map[string]domain.LoginAttempt
}

func newStubAttemptStore() *stubAttemptStore {
	return &stubAttemptStore{attempts: make(map[string]domain.LoginAttempt)}
}

func (s *stubAttemptStore) Remember(_ context.Context, key string, a domain.LoginAttempt, _ time.Duration) error {
	s.attempts[key] = a
	return nil
}

func (s *stubAttemptStore) Consume(_ context.Context, key string) (domain.LoginAttempt, error) {
	a := s.attempts[key]
	delete(s.attempts, key)
	return a, nil
}
