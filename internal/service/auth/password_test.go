package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	t.Parallel() // Enable parallel testing

	hasher := NewBcryptHasher(bcrypt.MinCost)

	hashed, err := hasher.Hash("correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "correct horse battery", hashed, "the hash must not echo the plaintext")

	assert.NoError(t, hasher.Compare(hashed, "correct horse battery"))
	assert.Error(t, hasher.Compare(hashed, "wrong password"))
}

func TestNewBcryptHasher_ZeroCostUsesDefault(t *testing.T) {
	t.Parallel() // Enable parallel testing

	hasher := NewBcryptHasher(0)
	assert.Equal(t, bcrypt.DefaultCost, hasher.cost)
}
