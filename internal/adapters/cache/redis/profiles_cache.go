package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medical-records-sharing/internal/domain/profiles"
	"medical-records-sharing/internal/platform/logger"
	"medical-records-sharing/internal/ports/auth"

	json "github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "profile:"
)

// kv es lo mínimo que usamos de *goredis.Client.
type kv interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
}

// ProfileCache envuelve un profiles.Repository con cache de lectura en Redis.
// Solo se cachean perfiles encontrados; los errores de Redis caen al store.
type ProfileCache struct {
	next profiles.Repository
	kv   kv
	ttl  time.Duration
	log  logger.Logger
}

func NewProfileCache(next profiles.Repository, client kv, ttl time.Duration, log logger.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ProfileCache{next: next, kv: client, ttl: ttl, log: log}
}

func NewClient(ctx context.Context, addr, password string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

func cacheKey(role auth.Role, userID string) string {
	return keyPrefix + string(role) + ":" + userID
}

func (c *ProfileCache) FindByUserID(ctx context.Context, role auth.Role, userID string) (profiles.Profile, error) {
	key := cacheKey(role, userID)

	raw, err := c.kv.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p profiles.Profile
		if uerr := json.Unmarshal([]byte(raw), &p); uerr == nil && p.ID != "" {
			return p, nil
		}
		c.log.Warn("profile cache entry unreadable", map[string]any{"role": string(role)})
	case errors.Is(err, goredis.Nil):
	default:
		c.log.Warn("profile cache get failed", map[string]any{"role": string(role), "error": err.Error()})
	}

	p, err := c.next.FindByUserID(ctx, role, userID)
	if err != nil {
		return profiles.Profile{}, err
	}

	b, err := json.Marshal(p)
	if err == nil {
		err = c.kv.Set(ctx, key, b, c.ttl).Err()
	}
	if err != nil {
		c.log.Warn("profile cache set failed", map[string]any{"role": string(role), "error": err.Error()})
	}
	return p, nil
}
