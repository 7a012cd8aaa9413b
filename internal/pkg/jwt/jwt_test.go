package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := New("secret", time.Hour)
	tok, err := s.GenerateToken(42, "admin")
	require.NoError(t, err)

	claims, err := s.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestRejectsExpiredAndForeignTokens(t *testing.T) {
	expired, err := New("secret", -time.Minute).GenerateToken(1, "requester")
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := New("other", time.Hour).GenerateToken(1, "requester")
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{UserID: 1}).SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
