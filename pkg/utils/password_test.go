package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	ok, err := VerifyPassword("correct horse battery staple", hash)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPasswordWrongPassword(t *testing.T) {
	hash, err := HashPassword("secret-one")
	assert.NoError(t, err)

	ok, err := VerifyPassword("secret-two", hash)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	h1, err := HashPassword("same input")
	assert.NoError(t, err)
	h2, err := HashPassword("same input")
	assert.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := VerifyPassword("whatever", "not-a-hash")
	assert.Error(t, err)
}

func TestHashPasswordWorksForPINs(t *testing.T) {
	hash, err := HashPassword("123456")
	assert.NoError(t, err)

	ok, err := VerifyPassword("123456", hash)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("123457", hash)
	assert.NoError(t, err)
	assert.False(t, ok)
}
