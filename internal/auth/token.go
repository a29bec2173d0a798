package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TokenKey is the key both slots store the admin token under.
const TokenKey = "admin_token"

// TokenProvider yields the current admin bearer token, or "" when signed out.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

func (f TokenProviderFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// TokenStore holds the admin token in one of two slots: a persistent one for
// "remember me" sign-ins and a session one that expires after sessionTTL.
// Reads check the persistent slot first.
type TokenStore struct {
	persistent Storage
	session    Storage
	sessionTTL time.Duration
}

// NewTokenStore creates a token store over the two slots.
func NewTokenStore(persistent, session Storage, sessionTTL time.Duration) *TokenStore {
	return &TokenStore{
		persistent: persistent,
		session:    session,
		sessionTTL: sessionTTL,
	}
}

// Token returns the stored token. It is read on every call and never cached.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	token, _, err := s.Current(ctx)
	return token, err
}

// Current returns the stored token and whether it came from the persistent slot.
func (s *TokenStore) Current(ctx context.Context) (token string, remembered bool, err error) {
	token, err = s.persistent.Get(ctx, TokenKey)
	if err != nil {
		return "", false, fmt.Errorf("read persistent token: %w", err)
	}
	if token != "" {
		return token, true, nil
	}

	token, err = s.session.Get(ctx, TokenKey)
	if err != nil {
		return "", false, fmt.Errorf("read session token: %w", err)
	}
	return token, false, nil
}

// Save stores token in the slot picked by remember and clears the other one,
// so a later sign-in never leaves a stale token shadowing the new one.
func (s *TokenStore) Save(ctx context.Context, token string, remember bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("save token: empty token")
	}

	if remember {
		if err := s.persistent.Set(ctx, TokenKey, token, 0); err != nil {
			return fmt.Errorf("save persistent token: %w", err)
		}
		if err := s.session.Delete(ctx, TokenKey); err != nil {
			return fmt.Errorf("clear session token: %w", err)
		}
		return nil
	}

	if err := s.session.Set(ctx, TokenKey, token, s.sessionTTL); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	if err := s.persistent.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear persistent token: %w", err)
	}
	return nil
}

// Clear removes the token from both slots.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.persistent.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear persistent token: %w", err)
	}
	if err := s.session.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}
