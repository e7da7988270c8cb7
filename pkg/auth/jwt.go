package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "trackline-backend/pkg/errors"
)

// Claims holds the token claims Trackline cares about
type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 bearer tokens
type JWTValidator struct {
	secret []byte
	issuer string
}

// NewJWTValidator creates a validator for the given secret and issuer
func NewJWTValidator(secret, issuer string) (*JWTValidator, error) {
	if secret == "" {
		return nil, pkgerrors.NewValidationError("JWT secret cannot be empty")
	}
	return &JWTValidator{secret: []byte(secret), issuer: issuer}, nil
}

// Validate parses and verifies a token string, returning its claims
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, pkgerrors.NewUnauthorizedError("invalid token").WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, pkgerrors.NewUnauthorizedError("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, pkgerrors.NewUnauthorizedError("token missing subject")
	}

	return claims, nil
}

// UserContext is the authenticated identity carried on a request context
type UserContext struct {
	UserID string
	Email  string
}

type userContextKey struct{}

// WithUser attaches the authenticated user to the context
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUserFromContext extracts the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(userContextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, pkgerrors.NewUnauthorizedError("no user in context")
	}
	return user, nil
}
