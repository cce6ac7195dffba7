// Package hasher provides the password hashers the service can be configured
// with. Both produce self-describing credentials, so Verify needs no
// configuration beyond what is encoded in the stored string.
package hasher

import (
	"fmt"
	"strings"

	"github.com/99minutos/accounts/internal/core/ports"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Config selects the algorithm and its work factor.
type Config struct {
	Algorithm  string
	BcryptCost int

	Argon2Time     uint32
	Argon2MemoryKB uint32
	Argon2Threads  uint8
}

// New returns the PasswordHasher described by cfg.
func New(cfg Config) (ports.PasswordHasher, error) {
	switch strings.ToLower(cfg.Algorithm) {
	case "", AlgorithmBcrypt:
		return NewBcrypt(cfg.BcryptCost), nil
	case AlgorithmArgon2id:
		return NewArgon2id(Argon2Params{
			Time:     cfg.Argon2Time,
			MemoryKB: cfg.Argon2MemoryKB,
			Threads:  cfg.Argon2Threads,
		}), nil
	default:
		return nil, fmt.Errorf("hasher: unknown algorithm %q", cfg.Algorithm)
	}
}
