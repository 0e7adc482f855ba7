package minio

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"medical-records-sharing/internal/domain/content"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Con Region fija la firma no consulta la ubicación del bucket.
	Region string
}

type presigner interface {
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// Signer implementa content.URLSigner con URLs prefirmadas S3v4.
type Signer struct {
	client presigner
	bucket string
}

var _ content.URLSigner = (*Signer)(nil)

func New(cfg Config) (*Signer, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("minio bucket is required")
	}
	client, err := miniogo.New(strings.TrimSpace(cfg.Endpoint), &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Signer{client: client, bucket: cfg.Bucket}, nil
}

func (s *Signer) SignGet(ctx context.Context, objectPath string, ttl time.Duration) (string, error) {
	name := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if name == "" {
		return "", errors.New("empty object path")
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, name, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", name, err)
	}
	return u.String(), nil
}
