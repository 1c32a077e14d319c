package access_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"vomprater-server/internal/access"
	"vomprater-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := access.GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, pw, access.PasswordLength)
		assert.GreaterOrEqual(t, len(pw), 12)
		// No characters outside the fixed charset.
		for _, r := range pw {
			assert.True(t, strings.ContainsRune("abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!#$%&*+-=?@", r),
				"unexpected character %q", r)
		}
		assert.False(t, seen[pw], "password repeated")
		seen[pw] = true
	}
}

func TestPasswordHashRoundtrip(t *testing.T) {
	pw, err := access.GeneratePassword()
	require.NoError(t, err)

	hash, err := access.HashPassword(pw)
	require.NoError(t, err)
	assert.NotEqual(t, pw, hash)

	assert.True(t, access.CheckPassword(pw, hash))
	assert.False(t, access.CheckPassword("wrong-password", hash))
	assert.False(t, access.CheckPassword("", hash))
}

func TestTokenIssueAndVerify(t *testing.T) {
	svc, err := access.NewService("test-secret", time.Hour, zap.NewNop())
	require.NoError(t, err)

	storyID := uuid.New()
	token, err := svc.IssueToken(storyID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, storyID, got)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer, err := access.NewService("secret-a", time.Hour, zap.NewNop())
	require.NoError(t, err)
	verifier, err := access.NewService("secret-b", time.Hour, zap.NewNop())
	require.NoError(t, err)

	token, err := issuer.IssueToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTokenInvalid))
}

func TestTokenExpired(t *testing.T) {
	svc, err := access.NewService("test-secret", -time.Minute, zap.NewNop())
	require.NoError(t, err)
	// Negative TTL falls back to the 24h default, so build one that expires.
	svcShort, err := access.NewService("test-secret", time.Nanosecond, zap.NewNop())
	require.NoError(t, err)

	token, err := svcShort.IssueToken(uuid.New())
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	_, err = svc.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTokenExpired))
}

func TestTokenMalformed(t *testing.T) {
	svc, err := access.NewService("test-secret", time.Hour, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.VerifyToken("not-a-token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrTokenMalformed))
}

func TestEmptySecretRefused(t *testing.T) {
	_, err := access.NewService("", time.Hour, zap.NewNop())
	assert.Error(t, err)
}
