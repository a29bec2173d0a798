package auth

import (
	"context"
	"fmt"

	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
)

// Gate decides whether a protected request may go out.
type Gate struct {
	tokens TokenProvider
}

// NewGate creates a gate reading tokens from tokens.
func NewGate(tokens TokenProvider) *Gate {
	return &Gate{tokens: tokens}
}

// Authorize returns the bearer token to send, or apperrors.ErrAuthRequired
// when there is none. Callers must not touch the network on error.
func (g *Gate) Authorize(ctx context.Context) (string, error) {
	token, err := g.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperrors.ErrAuthRequired, err)
	}
	if token == "" {
		return "", apperrors.ErrAuthRequired
	}
	return token, nil
}

// Public authorizes every request without a token. Storefront reads use it.
type Public struct{}

// Authorize always succeeds with an empty token.
func (Public) Authorize(context.Context) (string, error) {
	return "", nil
}
