package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc := NewTokenService("s3cret", time.Hour)

	token, expiresAt, err := svc.Issue("ops")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, models.OperatorScope, claims.Scope)
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenService("other", time.Hour).Issue("ops")
	require.NoError(t, err)

	_, err = NewTokenService("s3cret", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := NewTokenService("s3cret", time.Minute)
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := svc.Issue("ops")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestTokenServiceRequiresScope(t *testing.T) {
	claims := &models.OperatorClaims{
		Scope: "read",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewTokenService("s3cret", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestTokenServiceDisabledWithoutSecret(t *testing.T) {
	svc := NewTokenService("", 0)
	assert.False(t, svc.Enabled())
	_, _, err := svc.Issue("ops")
	assert.Error(t, err)
	_, err = svc.ValidateToken("anything")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
