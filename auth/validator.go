package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/lms-backend/middleware"
)

var (
	// ErrInvalidToken is returned when the token is malformed or its signature is wrong
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingSecret is returned when the validator has no signing secret
	ErrMissingSecret = errors.New("jwt secret is not configured")
)

// TokenClaims is the JWT payload issued by the identity provider
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Config holds validator settings
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
}

// Validator validates HS256 bearer tokens. It never issues tokens.
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

var _ middleware.TokenValidator = (*Validator)(nil)

// NewValidator creates a validator. An empty issuer or audience is not checked.
func NewValidator(config Config) *Validator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &Validator{
		secret: []byte(config.Secret),
		parser: jwt.NewParser(opts...),
	}
}

// ValidateToken verifies the signature and registered claims and returns
// the request principal
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (*middleware.Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &TokenClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" && claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return &middleware.Claims{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
		Issuer:  claims.Issuer,
	}, nil
}
