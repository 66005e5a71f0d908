// Package security hashes and verifies user passwords.
package security

import (
	"fmt"
	"strings"
)

// Hasher one-way hashes a password and later verifies attempts against the
// stored digest.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

const (
	AlgorithmPBKDF2   = "pbkdf2"
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// Options selects the algorithm used for new hashes and its work factor.
// Zero values fall back to defaults.
type Options struct {
	Algorithm        string
	PBKDF2Iterations int
	BcryptCost       int
	Argon2           Argon2Params
}

// PasswordHasher hashes with one configured algorithm and verifies digests
// produced by any supported algorithm, detected by prefix.
type PasswordHasher struct {
	primary Hasher
	pbkdf2  *PBKDF2Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func NewPasswordHasher(opts Options) (*PasswordHasher, error) {
	argonParams := opts.Argon2
	if argonParams == (Argon2Params{}) {
		argonParams = DefaultArgon2Params()
	}

	h := &PasswordHasher{
		pbkdf2: NewPBKDF2Hasher(opts.PBKDF2Iterations),
		bcrypt: NewBcryptHasher(opts.BcryptCost),
		argon2: NewArgon2Hasher(argonParams),
	}

	switch strings.ToLower(strings.TrimSpace(opts.Algorithm)) {
	case "", AlgorithmPBKDF2:
		h.primary = h.pbkdf2
	case AlgorithmBcrypt:
		h.primary = h.bcrypt
	case AlgorithmArgon2id:
		h.primary = h.argon2
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", opts.Algorithm)
	}
	return h, nil
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

func (h *PasswordHasher) Verify(password, encoded string) bool {
	switch {
	case strings.HasPrefix(encoded, pbkdf2Prefix):
		return h.pbkdf2.Verify(password, encoded)
	case isBcryptHash(encoded):
		return h.bcrypt.Verify(password, encoded)
	case strings.HasPrefix(encoded, argon2Prefix):
		return h.argon2.Verify(password, encoded)
	default:
		return false
	}
}
