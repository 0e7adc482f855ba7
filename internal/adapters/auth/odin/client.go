package odin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"medical-records-sharing/internal/platform/httpclient"
)

var (
	ErrOdinNotConfigured = errors.New("odin client not configured")
	ErrOdinUnauthorized  = errors.New("odin unauthorized")
	ErrOdinUpstream      = errors.New("odin upstream error")
)

const verifyPath = "/v1/tokens/verify"

// Config del cliente Odin.
type Config struct {
	BaseURL string
	APIKey  string

	// Si está vacío, se usa "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

// Identity es lo que Odin devuelve para un token válido.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Client struct {
	http *httpclient.Client
}

func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) == "" || key == "" {
		return nil, ErrOdinNotConfigured
	}
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.New(cfg.BaseURL, timeout)
	if err != nil {
		return nil, err
	}
	hc.Headers = map[string]string{h: key}
	return &Client{http: hc}, nil
}

// VerifyToken llama a Odin para verificar un token y traer la identidad.
func (c *Client) VerifyToken(ctx context.Context, token string) (Identity, error) {
	if c == nil || c.http == nil {
		return Identity{}, ErrOdinNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrOdinUnauthorized
	}

	// Algunos IAM esperan el token en Authorization, aunque también vaya en body.
	headers := map[string]string{"Authorization": "Bearer " + token}

	var out Identity
	err := c.http.DoJSON(ctx, http.MethodPost, verifyPath, headers, map[string]string{"token": token}, &out)
	switch st := httpclient.StatusOf(err); {
	case err == nil:
	case st == http.StatusUnauthorized || st == http.StatusForbidden:
		return Identity{}, ErrOdinUnauthorized
	default:
		return Identity{}, fmt.Errorf("%w: %v", ErrOdinUpstream, err)
	}

	out.UserID = strings.TrimSpace(out.UserID)
	out.Email = strings.TrimSpace(out.Email)
	return out, nil
}
