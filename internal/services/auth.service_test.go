package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xenocpu/internal/config"
)

func newTestAuth(secret string, expiry time.Duration) *AuthService {
	return NewAuthService(config.AuthConfig{SecretKey: secret, TokenExpiry: expiry}, zap.NewNop().Sugar())
}

func TestAuthService_RoundTrip(t *testing.T) {
	as := newTestAuth(strings.Repeat("k", 40), time.Hour)

	token, err := as.GenerateToken("bench-runner")
	require.NoError(t, err)

	claims, err := as.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "bench-runner", claims.ClientName)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAuthService_RejectsForeignSecret(t *testing.T) {
	token, err := newTestAuth(strings.Repeat("a", 40), time.Hour).GenerateToken("x")
	require.NoError(t, err)

	_, err = newTestAuth(strings.Repeat("b", 40), time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthService_RejectsExpired(t *testing.T) {
	as := newTestAuth(strings.Repeat("k", 40), -time.Minute)
	token, err := as.GenerateToken("x")
	require.NoError(t, err)

	_, err = as.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthService_PadsShortSecret(t *testing.T) {
	as := newTestAuth("short", time.Hour)
	assert.GreaterOrEqual(t, len(as.secretKey), minSecretLen)
	assert.True(t, strings.HasPrefix(as.secretKey, "short"))
}

func TestAuthService_DefaultExpiry(t *testing.T) {
	as := newTestAuth(strings.Repeat("k", 40), 0)
	assert.Equal(t, 90*24*time.Hour, as.tokenExpiry)
}

func TestLoadOrCreateSecret_Persists(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), secretKeyFile)
	log := zap.NewNop().Sugar()

	first := loadOrCreateSecret(keyFile, log)
	require.NotEmpty(t, first)

	data, err := os.ReadFile(keyFile)
	require.NoError(t, err)
	assert.Equal(t, first, string(data))

	assert.Equal(t, first, loadOrCreateSecret(keyFile, log))
}
