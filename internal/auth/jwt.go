// Package auth issues and verifies session tokens and runs the GitHub OAuth
// flow.
//
// FLOW:
//  1. /auth/github/login redirects to GitHub
//  2. /auth/github/callback exchanges the code for a GitHub profile
//  3. the server signs a JWT carrying the identity and sets it as the
//     HttpOnly "token" cookie
//  4. RequireAuth validates the cookie on every API call and puts the
//     identity in the request context
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/ailogo/internal/model"
)

const (
	issuer = "ailogo"

	// SessionTTL is the lifetime of a session token and its cookie.
	SessionTTL = 7 * 24 * time.Hour
)

// TokenService signs and verifies HS256 session tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService rejects secrets shorter than 16 characters.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims carries the identity alongside the registered claims. "sub" holds
// the identity subject ("gh_<github id>").
type claims struct {
	jwt.RegisteredClaims
	GitHubID  int64  `json:"gh_id,omitempty"`
	Login     string `json:"login,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Generate signs a token for id that expires after SessionTTL.
func (s *TokenService) Generate(id model.Identity) (string, error) {
	return s.GenerateWithDuration(id, SessionTTL)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to mint expired tokens.
func (s *TokenService) GenerateWithDuration(id model.Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		GitHubID:  id.GitHubID,
		Login:     id.Login,
		Email:     id.Email,
		AvatarURL: id.AvatarURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer, algorithm and expiry, and returns the
// identity the token carries.
func (s *TokenService) Validate(tokenStr string) (model.Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, fmt.Errorf("auth: token expired")
		}
		return model.Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return model.Identity{
		Subject:   c.Subject,
		GitHubID:  c.GitHubID,
		Login:     c.Login,
		Email:     c.Email,
		AvatarURL: c.AvatarURL,
	}, nil
}
