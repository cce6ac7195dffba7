package hasher

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts/internal/core/ports"
)

func testHashers() map[string]ports.PasswordHasher {
	return map[string]ports.PasswordHasher{
		"bcrypt":   NewBcrypt(bcrypt.MinCost),
		"argon2id": NewArgon2id(Argon2Params{Time: 1, MemoryKB: 8 * 1024, Threads: 1}),
	}
}

func TestHasher_SaltedAndVerifiable(t *testing.T) {
	for name, h := range testHashers() {
		t.Run(name, func(t *testing.T) {
			first, err := h.Hash("secret1")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			second, err := h.Hash("secret1")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if first == second {
				t.Fatalf("expected two different credentials for the same plaintext")
			}
			if first == "secret1" {
				t.Fatalf("credential equals plaintext")
			}
			for _, c := range []string{first, second} {
				ok, err := h.Verify("secret1", c)
				if err != nil || !ok {
					t.Fatalf("verify(%q) = %v, %v", c, ok, err)
				}
			}
		})
	}
}

func TestHasher_RejectsWrongPassword(t *testing.T) {
	for name, h := range testHashers() {
		t.Run(name, func(t *testing.T) {
			c, err := h.Hash("secret1")
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			ok, err := h.Verify("secret2", c)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if ok {
				t.Fatalf("wrong password accepted")
			}
		})
	}
}

func TestHasher_EmptyPassword(t *testing.T) {
	for name, h := range testHashers() {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Hash(""); err != ErrEmptyPassword {
				t.Fatalf("expected ErrEmptyPassword, got %v", err)
			}
		})
	}
}

func TestHasher_LongPasswords(t *testing.T) {
	long := strings.Repeat("a", 4096)
	almost := strings.Repeat("a", 4095) + "b"

	for name, h := range testHashers() {
		t.Run(name, func(t *testing.T) {
			c, err := h.Hash(long)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if ok, _ := h.Verify(long, c); !ok {
				t.Fatalf("long password not verified")
			}
			if ok, _ := h.Verify(almost, c); ok {
				t.Fatalf("passwords differing after byte 72 must not match")
			}
		})
	}
}

func TestHasher_NeedsRehash(t *testing.T) {
	low := NewBcrypt(bcrypt.MinCost)
	high := NewBcrypt(bcrypt.MinCost + 1)

	c, err := low.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if low.NeedsRehash(c) {
		t.Fatalf("same cost should not need rehash")
	}
	if !high.NeedsRehash(c) {
		t.Fatalf("different cost should need rehash")
	}

	argon := NewArgon2id(Argon2Params{Time: 1, MemoryKB: 8 * 1024, Threads: 1})
	if !argon.NeedsRehash(c) {
		t.Fatalf("bcrypt credential should need rehash under argon2id")
	}
	ac, err := argon.Hash("secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if argon.NeedsRehash(ac) {
		t.Fatalf("same params should not need rehash")
	}
	if !low.NeedsRehash(ac) {
		t.Fatalf("argon2id credential should need rehash under bcrypt")
	}
}

func TestArgon2id_InvalidCredential(t *testing.T) {
	h := NewArgon2id(Argon2Params{})
	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=1,p=4$!!!$aGFzaA",
	}
	for _, c := range cases {
		if _, err := h.Verify("secret1", c); err != ErrInvalidHash {
			t.Fatalf("Verify(%q): expected ErrInvalidHash, got %v", c, err)
		}
	}
}

func TestNew(t *testing.T) {
	if h, err := New(Config{}); err != nil {
		t.Fatalf("default: %v", err)
	} else if _, ok := h.(*Bcrypt); !ok {
		t.Fatalf("expected bcrypt by default, got %T", h)
	}

	if h, err := New(Config{Algorithm: "ARGON2ID"}); err != nil {
		t.Fatalf("argon2id: %v", err)
	} else if _, ok := h.(*Argon2id); !ok {
		t.Fatalf("expected argon2id, got %T", h)
	}

	if _, err := New(Config{Algorithm: "md5"}); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
}
