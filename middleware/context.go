package middleware

import (
	"context"
	"strconv"

	"github.com/upb/lms-backend/models"
)

type contextKey string

const (
	// ClaimsKey is the context key for authenticated claims
	ClaimsKey contextKey = "claims"
)

// Claims is the authenticated principal of a request
type Claims struct {
	Subject string
	UserID  int64 // 0 when the token carries no numeric user id
	Email   string
	Role    string
	Issuer  string
}

// HasRole reports whether the principal holds one of roles
func (c *Claims) HasRole(roles ...string) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}
	return false
}

// GetClaimsFromContext retrieves the claims placed by RequireAuth
func GetClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// WithClaims adds claims to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// CauserFromContext resolves the audit causer of the current request.
// The id is the numeric user id, falling back to the token subject.
func CauserFromContext(ctx context.Context) (*models.Causer, bool) {
	claims := GetClaimsFromContext(ctx)
	if claims == nil {
		return nil, false
	}

	id := claims.Subject
	if claims.UserID > 0 {
		id = strconv.FormatInt(claims.UserID, 10)
	}
	if id == "" {
		return nil, false
	}
	return &models.Causer{Type: "User", ID: id}, true
}
