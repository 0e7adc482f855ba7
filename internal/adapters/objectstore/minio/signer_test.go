package minio

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_SignGet_Offline(t *testing.T) {
	s, err := New(Config{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "documents",
		Region:    "us-east-1",
	})
	require.NoError(t, err)

	raw, err := s.SignGet(context.Background(), "/patients/p-1/lab.pdf", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/documents/patients/p-1/lab.pdf", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

type failingPresigner struct{}

func (failingPresigner) PresignedGetObject(context.Context, string, string, time.Duration, url.Values) (*url.URL, error) {
	return nil, errors.New("boom")
}

func TestSigner_SignGet_Errors(t *testing.T) {
	s := &Signer{client: failingPresigner{}, bucket: "documents"}

	_, err := s.SignGet(context.Background(), "a.pdf", time.Minute)
	assert.ErrorContains(t, err, "a.pdf")

	_, err = s.SignGet(context.Background(), "  ", time.Minute)
	assert.Error(t, err)
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}
