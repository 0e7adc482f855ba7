// Package content firma URLs de lectura temporales para los binarios de
// documentos ya resueltos. Un error de firma deja la URL en null solo para ese
// documento.
package content

import (
	"context"
	"time"

	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTTL = time.Hour
	MinTTL     = time.Minute
	MaxTTL     = 24 * time.Hour

	maxParallel = 8
)

// URLSigner emite una URL GET firmada para un objeto del bucket de documentos.
type URLSigner interface {
	SignGet(ctx context.Context, objectPath string, ttl time.Duration) (string, error)
}

// SignedDocument es un documento resuelto más su URL (nil si no se pudo firmar).
type SignedDocument struct {
	records.Record
	SignedURL *string `json:"signed_url"`
}

type Gateway struct {
	signer URLSigner
	ttl    time.Duration
	log    logger.Logger
}

// NewGateway acota ttl a [MinTTL, MaxTTL]. Con signer nil todas las URLs quedan en null.
func NewGateway(signer URLSigner, ttl time.Duration, log logger.Logger) *Gateway {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	if ttl > MaxTTL {
		ttl = MaxTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{signer: signer, ttl: ttl, log: log}
}

func (g *Gateway) TTL() time.Duration { return g.ttl }

// Attach firma cada documento de forma independiente y conserva el orden de entrada.
func (g *Gateway) Attach(ctx context.Context, docs []records.Record) []SignedDocument {
	out := make([]SignedDocument, len(docs))
	for i, d := range docs {
		out[i] = SignedDocument{Record: d}
	}
	if g == nil || g.signer == nil || len(docs) == 0 {
		return out
	}

	var eg errgroup.Group
	eg.SetLimit(maxParallel)
	for i := range out {
		eg.Go(func() error {
			out[i].SignedURL = g.sign(ctx, out[i].Record)
			return nil
		})
	}
	_ = eg.Wait()
	return out
}

func (g *Gateway) sign(ctx context.Context, doc records.Record) *string {
	path := doc.StoragePath()
	if path == "" {
		g.log.Warn("document without storage path", map[string]any{"record_id": doc.ID})
		return nil
	}

	u, err := g.signer.SignGet(ctx, path, g.ttl)
	if err != nil || u == "" {
		g.log.Warn("signed url failed", map[string]any{
			"record_id": doc.ID,
			"error":     err,
		})
		return nil
	}
	return &u
}
