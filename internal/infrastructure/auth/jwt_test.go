package auth

import (
	"testing"
	"time"

	"github.com/bizhub/backend/internal/domain/identity"
	"github.com/bizhub/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                testSecret,
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "bizhub",
	})
}

func newTestActor() identity.Actor {
	return identity.Actor{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Username: "kofi",
		Roles:    []string{identity.RoleAdmin},
	}
}

func sign(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService()
	actor := newTestActor()

	token, expiresAt, err := svc.GenerateAccessToken(actor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	got, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, actor, got)
	assert.True(t, got.IsAdmin())
}

func TestJWTService_ValidateAccessToken_Errors(t *testing.T) {
	svc := newTestJWTService()
	actor := newTestActor()
	now := time.Now()

	valid := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "bizhub",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
			TenantID:  actor.TenantID.String(),
			UserID:    actor.UserID.String(),
			TokenType: TokenTypeAccess,
		}
	}

	t.Run("expired", func(t *testing.T) {
		c := valid()
		c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := valid()
		c.NotBefore = jwt.NewNumericDate(now.Add(time.Hour))
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(sign(t, valid(), "another-secret-key-of-32-chars!!"))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := valid()
		c.Issuer = "someone-else"
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token type", func(t *testing.T) {
		c := valid()
		c.TokenType = "refresh"
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrInvalidTokenType)
	})

	t.Run("missing tenant", func(t *testing.T) {
		c := valid()
		c.TenantID = ""
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrMissingTenantID)
	})

	t.Run("missing user", func(t *testing.T) {
		c := valid()
		c.UserID = ""
		_, err := svc.ValidateAccessToken(sign(t, c, testSecret))
		assert.ErrorIs(t, err, ErrMissingUserID)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_Actor_InvalidIDs(t *testing.T) {
	_, err := (&Claims{TenantID: "x", UserID: uuid.NewString()}).Actor()
	assert.ErrorIs(t, err, ErrInvalidClaims)
	_, err = (&Claims{TenantID: uuid.NewString(), UserID: "y"}).Actor()
	assert.ErrorIs(t, err, ErrInvalidClaims)
}
