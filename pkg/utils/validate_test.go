package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePIN(t *testing.T) {
	assert.True(t, ValidatePIN("000000"))
	assert.True(t, ValidatePIN("123456"))

	assert.False(t, ValidatePIN(""))
	assert.False(t, ValidatePIN("12345"))
	assert.False(t, ValidatePIN("1234567"))
	assert.False(t, ValidatePIN("12a456"))
	assert.False(t, ValidatePIN("12 456"))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, ValidateUsername("alice"))
	assert.NoError(t, ValidateUsername("alice_99"))
	assert.NoError(t, ValidateUsername("9lives"))

	assert.Error(t, ValidateUsername("ab"))
	assert.Error(t, ValidateUsername("this_username_is_way_too_long"))
	assert.Error(t, ValidateUsername("_leading"))
	assert.Error(t, ValidateUsername("bad name"))
	assert.Error(t, ValidateUsername("bad-name"))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  Alice "))
}
