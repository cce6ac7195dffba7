package hasher

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt reads at most 72 bytes; longer plaintexts are pre-hashed so the
// whole password counts.
const bcryptMaxBytes = 72

// Bcrypt hashes with bcrypt at a fixed cost.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a Bcrypt hasher. Costs outside bcrypt's range fall back
// to bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), b.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// Verify compares in constant time (bcrypt.CompareHashAndPassword uses
// subtle.ConstantTimeCompare on the derived keys).
func (b *Bcrypt) Verify(plain, credential string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(credential), bcryptInput(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("bcrypt: %w", err)
	}
}

// NeedsRehash reports credentials that are not bcrypt or use another cost.
func (b *Bcrypt) NeedsRehash(credential string) bool {
	cost, err := bcrypt.Cost([]byte(credential))
	if err != nil {
		return true
	}
	return cost != b.cost
}

func bcryptInput(plain string) []byte {
	if len(plain) <= bcryptMaxBytes {
		return []byte(plain)
	}
	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
