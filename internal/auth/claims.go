package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is what the console shows about the signed-in admin.
type Claims struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsAdmin   bool      `json:"isAdmin,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the token carried an expiry that has passed.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

var parser = jwt.NewParser()

// ParseClaims decodes token without verifying its signature. The backend
// verifies every request; these claims are only for display and logs.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse admin token: %w", err)
	}

	c := Claims{
		Email: stringClaim(mc, "email"),
		Name:  stringClaim(mc, "name"),
		Role:  stringClaim(mc, "role"),
	}
	for _, k := range []string{"sub", "userId", "id", "email"} {
		if v := stringClaim(mc, k); v != "" {
			c.Subject = v
			break
		}
	}
	if v, ok := mc["isAdmin"].(bool); ok {
		c.IsAdmin = v
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if c.Subject == "" {
		return Claims{}, errors.New("parse admin token: no subject claim")
	}
	return c, nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	v, _ := mc[key].(string)
	return v
}

// AdminResolver names the signed-in admin for log enrichment, or "" when
// nobody is signed in or the token does not parse.
func AdminResolver(tokens TokenProvider) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		token, err := tokens.Token(ctx)
		if err != nil || token == "" {
			return ""
		}
		c, err := ParseClaims(token)
		if err != nil {
			return ""
		}
		return c.Subject
	}
}
