// Package cryptox implements the password handling used by the offline
// credential vault: argon2id key derivation with a per-account random salt,
// and constant-time verification. Plaintext passwords are never persisted,
// only the derived hash and its salt.
package cryptox

import (
	"crypto/subtle"

	"github.com/avolkova/keepsafe/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// SaltSize is the length of per-account random salts.
	SaltSize = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// DeriveKey derives a 32-byte argon2id key from password and salt.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashPassword generates a fresh salt and returns (hash, salt) for storage.
func HashPassword(password []byte) (hash, salt []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	return DeriveKey(password, salt), salt
}

// VerifyPassword recomputes the hash with the stored salt and compares it to
// the stored hash in constant time.
func VerifyPassword(password, salt, hash []byte) bool {
	candidate := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}
