package jwtverifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medical-records-sharing/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Claims es el payload esperado: sub (o user_id), email y role.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Config struct {
	Secret string
	Issuer string // opcional
}

// Verifier implementa auth.AuthVerifier con tokens HS256 locales.
type Verifier struct {
	secret []byte
	opts   []jwt.ParserOption
}

func New(cfg Config) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	return &Verifier{secret: []byte(secret), opts: opts}, nil
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.opts...)
	if err != nil || !parsed.Valid {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(claims.Subject)
	if uid == "" {
		uid = strings.TrimSpace(claims.UserID)
	}
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", auth.ErrInvalidToken)
	}
	role, ok := auth.ParseRole(claims.Role)
	if !ok {
		return auth.Claims{}, fmt.Errorf("%w: unknown role %q", auth.ErrInvalidToken, claims.Role)
	}

	return auth.Claims{
		UserID: uid,
		Email:  strings.TrimSpace(claims.Email),
		Role:   role,
	}, nil
}
