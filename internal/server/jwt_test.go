package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/openpay/internal/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing-minimum-32-bytes",
		Issuer:          "openpay",
		ExpirationHours: 12,
	}
}

func TestJWTService_RoundTrip(t *testing.T) {
	service := NewJWTService(testJWTConfig())

	token, err := service.GenerateToken(RoleModerator)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, claims.GetRole())
	assert.Equal(t, "openpay", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(12*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestJWTService_Rejects(t *testing.T) {
	service := NewJWTService(testJWTConfig())
	valid, err := service.GenerateToken(RoleModerator)
	require.NoError(t, err)

	otherSecret := testJWTConfig()
	otherSecret.Secret = "another-secret-key-that-is-long-enough"
	forged, err := NewJWTService(otherSecret).GenerateToken(RoleModerator)
	require.NoError(t, err)

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, err := NewJWTService(otherIssuer).GenerateToken(RoleModerator)
	require.NoError(t, err)

	expiredService := NewJWTService(testJWTConfig())
	expiredService.now = func() time.Time { return time.Now().Add(-13 * time.Hour) }
	expired, err := expiredService.GenerateToken(RoleModerator)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleModerator})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{"empty", "", "empty"},
		{"garbage", "not.a.jwt", "malformed"},
		{"wrong secret", forged, "signature"},
		{"wrong issuer", foreign, "failed to parse"},
		{"expired", expired, "expired"},
		{"alg none", unsigned, "signature"},
		{"truncated", valid[:len(valid)-4], "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestJWTService_AsTokenValidator(t *testing.T) {
	service := NewJWTService(testJWTConfig())
	token, err := service.GenerateToken(RoleModerator)
	require.NoError(t, err)

	claims, err := service.AsTokenValidator().ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, claims.GetRole())

	_, err = service.AsTokenValidator().ValidateToken("bad")
	assert.Error(t, err)
}
