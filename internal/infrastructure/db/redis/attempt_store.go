package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/accounts/internal/core/domain"
)

// AttemptStore remembers the last failed login of a client until it is read.
// Key format: login_attempt:<client_key>
type AttemptStore struct {
	client kv
}

func NewAttemptStore(client kv) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Remember(ctx context.Context, key string, attempt domain.LoginAttempt, ttl time.Duration) error {
	b, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("encode login attempt: %w", err)
	}
	return s.client.Set(ctx, s.key(key), b, ttl).Err()
}

// Consume reads and deletes the attempt in one round trip.
func (s *AttemptStore) Consume(ctx context.Context, key string) (domain.LoginAttempt, error) {
	raw, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.LoginAttempt{}, nil
		}
		return domain.LoginAttempt{}, fmt.Errorf("consume login attempt: %w", err)
	}

	var attempt domain.LoginAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return domain.LoginAttempt{}, fmt.Errorf("decode login attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptStore) key(k string) string {
	return "login_attempt:" + k
}
