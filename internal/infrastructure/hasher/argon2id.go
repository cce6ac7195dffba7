package hasher

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id defaults.
const (
	defaultArgon2Time     = 1
	defaultArgon2MemoryKB = 64 * 1024
	defaultArgon2Threads  = 4
	argon2SaltLen         = 16
	argon2KeyLen          = 32
)

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrInvalidHash   = errors.New("invalid credential format")
)

// Argon2Params is the work factor of an argon2id hash.
type Argon2Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// Argon2id hashes with argon2id and encodes the result in PHC format:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
type Argon2id struct {
	params Argon2Params
}

// NewArgon2id returns an Argon2id hasher; zero params take the defaults.
func NewArgon2id(p Argon2Params) *Argon2id {
	if p.Time == 0 {
		p.Time = defaultArgon2Time
	}
	if p.MemoryKB == 0 {
		p.MemoryKB = defaultArgon2MemoryKB
	}
	if p.Threads == 0 {
		p.Threads = defaultArgon2Threads
	}
	return &Argon2id{params: p}
}

func (h *Argon2id) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2id: salt: %w", err)
	}

	key := argon2.IDKey([]byte(plain), salt, h.params.Time, h.params.MemoryKB, h.params.Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

func (h *Argon2id) Verify(plain, credential string) (bool, error) {
	p, salt, expected, err := decodeArgon2id(credential)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(plain), salt, p.Time, p.MemoryKB, p.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// NeedsRehash reports credentials that are not argon2id or were produced
// with other parameters.
func (h *Argon2id) NeedsRehash(credential string) bool {
	p, _, _, err := decodeArgon2id(credential)
	if err != nil {
		return true
	}
	return p != h.params
}

func decodeArgon2id(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, ErrInvalidHash
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Time, &threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if threads == 0 || threads > 255 {
		return p, nil, nil, ErrInvalidHash
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return p, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}
