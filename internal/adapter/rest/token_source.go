package rest

import (
	"context"
	"fmt"
	"time"

	"restoadmin/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

type storeTokenSource struct {
	ctx   context.Context
	store domain.CredentialStore
}

// NewTokenSource returns an oauth2.TokenSource reading the current token pair
// from store on every call. Access tokens that are JWTs carry their exp claim
// as Expiry; opaque tokens never expire client-side.
func NewTokenSource(ctx context.Context, store domain.CredentialStore) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	pair, err := domain.StoredTokens(s.ctx, s.store)
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
	}
	if pair.Access != "" {
		if exp, ok := jwtExpiry(pair.Access); ok {
			tok.Expiry = exp
		}
	}
	return tok, nil
}

// jwtExpiry decodes the exp claim without verifying the signature; the
// server remains the authority on validity.
func jwtExpiry(raw string) (t time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return t, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return t, false
	}
	return exp.Time, true
}
