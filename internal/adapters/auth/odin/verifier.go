package odin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medical-records-sharing/internal/ports/auth"
)

// Verifier implementa auth.AuthVerifier usando Odin.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrOdinNotConfigured
	}

	id, err := v.client.VerifyToken(ctx, token)
	if errors.Is(err, ErrOdinUnauthorized) {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if err != nil {
		// upstream caído no es un token inválido
		return auth.Claims{}, fmt.Errorf("odin verify failed: %w", err)
	}

	if id.UserID == "" {
		return auth.Claims{}, fmt.Errorf("%w: odin claims missing user id", auth.ErrInvalidToken)
	}
	role, ok := auth.ParseRole(id.Role)
	if !ok {
		return auth.Claims{}, fmt.Errorf("%w: odin role %q", auth.ErrInvalidToken, strings.TrimSpace(id.Role))
	}

	return auth.Claims{UserID: id.UserID, Email: id.Email, Role: role}, nil
}
