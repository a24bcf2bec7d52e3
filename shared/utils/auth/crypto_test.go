package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, CheckPasswordHash("correct horse battery staple", hash))
	assert.False(t, CheckPasswordHash("wrong password", hash))
	assert.False(t, CheckPasswordHash("correct horse battery staple", "not-a-hash"))
}

func TestGenerateInvitationToken(t *testing.T) {
	token, err := GenerateInvitationToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	// Tokens go straight into invite links, so they must be URL safe
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	other, err := GenerateInvitationToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestGenerateRandomToken(t *testing.T) {
	token, err := GenerateRandomToken(16)
	require.NoError(t, err)
	assert.Len(t, token, 32) // hex doubles the byte length
	assert.Equal(t, strings.ToLower(token), token)
}
