// Package identity turns a bearer token issued by the external auth provider into a Principal.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/descope/go-sdk/descope"
	"github.com/descope/go-sdk/descope/client"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// Claims are the Supabase-style access token claims: sub is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required for the jwt auth provider")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	return principal(claims.Subject, claims.Email)
}

// Sign issues a token for userID. Used by tests and local tooling.
func (v *JWTVerifier) Sign(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

type sessionValidator interface {
	ValidateSessionWithToken(ctx context.Context, sessionToken string) (bool, *descope.Token, error)
}

// DescopeVerifier validates Descope session tokens.
type DescopeVerifier struct {
	auth sessionValidator
}

func NewDescopeVerifier(projectID string) (*DescopeVerifier, error) {
	if projectID == "" {
		return nil, errors.New("DESCOPE_PROJECT_ID is required for the descope auth provider")
	}
	c, err := client.NewWithConfig(&client.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("descope client: %w", err)
	}
	return &DescopeVerifier{auth: c.Auth}, nil
}

func (v *DescopeVerifier) Verify(ctx context.Context, tokenString string) (Principal, error) {
	ok, token, err := v.auth.ValidateSessionWithToken(ctx, tokenString)
	if err != nil || !ok || token == nil {
		return Principal{}, ErrInvalidToken
	}

	email, _ := token.Claims["email"].(string)
	if id, err := uuid.Parse(token.ID); err == nil {
		return Principal{UserID: id, Email: email}, nil
	}
	// Descope user ids are not uuids; map them onto a stable one.
	return Principal{UserID: uuid.NewSHA1(descopeNamespace, []byte(token.ID)), Email: email}, nil
}

var descopeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://descope.com/users"))

func principal(subject, email string) (Principal, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}
	return Principal{UserID: id, Email: email}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
