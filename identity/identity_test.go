package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/descope/go-sdk/descope"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier(t *testing.T) {
	v, err := NewJWTVerifier("secret", "inkwell")
	require.NoError(t, err)
	userID := uuid.New()

	token, err := v.Sign(Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	p, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, "a@example.com", p.Email)
}

func TestJWTVerifierRejects(t *testing.T) {
	v, err := NewJWTVerifier("secret", "inkwell")
	require.NoError(t, err)
	other, err := NewJWTVerifier("other-secret", "inkwell")
	require.NoError(t, err)
	sub := uuid.NewString()

	expired, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	forged, err := other.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub, Issuer: "someone-else"}})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	notUUID, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), notUUID)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier("", "")
	assert.Error(t, err)
}

type fakeSessions struct {
	token *descope.Token
	err   error
}

func (f fakeSessions) ValidateSessionWithToken(context.Context, string) (bool, *descope.Token, error) {
	return f.err == nil, f.token, f.err
}

func TestDescopeVerifier(t *testing.T) {
	v := &DescopeVerifier{auth: fakeSessions{token: &descope.Token{
		ID:     "U2abcdef",
		Claims: map[string]interface{}{"email": "d@example.com"},
	}}}

	p1, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	p2, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, p1.UserID, p2.UserID, "stable mapping")
	assert.Equal(t, "d@example.com", p1.Email)

	v = &DescopeVerifier{auth: fakeSessions{err: errors.New("expired")}}
	_, err = v.Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}
