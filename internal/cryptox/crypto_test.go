package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, salt := HashPassword([]byte("correct horse"))

	assert.Len(t, salt, SaltSize)
	assert.Len(t, hash, 32)
	assert.True(t, VerifyPassword([]byte("correct horse"), salt, hash))
	assert.False(t, VerifyPassword([]byte("wrong horse"), salt, hash))
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	h1, s1 := HashPassword([]byte("pw"))
	h2, s2 := HashPassword([]byte("pw"))

	// Same password, different salt, different hash.
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, h1, h2)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	assert.Equal(t, DeriveKey([]byte("pw"), salt), DeriveKey([]byte("pw"), salt))
}
