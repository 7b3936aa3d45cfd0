package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	ok, err := hasher.Compare("secret1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Compare("wrongpw", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasherDefaultCost(t *testing.T) {
	hasher := NewBcryptHasher()

	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestBcryptHasherMalformedHash(t *testing.T) {
	hasher := BcryptHasher{Cost: bcrypt.MinCost}

	_, err := hasher.Compare("secret1", "not-a-bcrypt-hash")
	assert.Error(t, err)
}
