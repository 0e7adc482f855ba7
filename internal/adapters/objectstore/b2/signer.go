package b2

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"medical-records-sharing/internal/domain/content"

	"github.com/kurin/blazer/b2"
)

// authURLFunc firma una descarga para un objeto del bucket.
type authURLFunc func(ctx context.Context, object string, valid time.Duration) (*url.URL, error)

// Signer implementa content.URLSigner con URLs autorizadas de Backblaze B2.
type Signer struct {
	authURL authURLFunc
}

var _ content.URLSigner = (*Signer)(nil)

// New autentica contra B2 y abre el bucket de documentos.
func New(ctx context.Context, keyID, appKey, bucket string) (*Signer, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("b2 bucket is required")
	}
	client, err := b2.NewClient(ctx, keyID, appKey)
	if err != nil {
		return nil, fmt.Errorf("b2 client: %w", err)
	}
	bkt, err := client.Bucket(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("b2 bucket %s: %w", bucket, err)
	}
	return &Signer{authURL: func(ctx context.Context, object string, valid time.Duration) (*url.URL, error) {
		return bkt.Object(object).AuthURL(ctx, valid, "")
	}}, nil
}

func (s *Signer) SignGet(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	name := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if name == "" {
		return "", errors.New("empty object path")
	}
	u, err := s.authURL(ctx, name, ttl)
	if err != nil {
		return "", fmt.Errorf("b2 auth url %s: %w", name, err)
	}
	return u.String(), nil
}
