package ports

// PasswordHasher turns a plaintext password into a stored credential and
// checks a plaintext against one. Verify runs in constant time with respect
// to where a mismatch occurs.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, credential string) (bool, error)
	// NeedsRehash reports whether credential was produced with other
	// parameters than the ones currently configured.
	NeedsRehash(credential string) bool
}
