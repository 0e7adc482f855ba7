package main

import (
	"context"
	"fmt"

	"medical-records-sharing/internal/adapters/audit/mongo"
	"medical-records-sharing/internal/adapters/auth/jwtverifier"
	"medical-records-sharing/internal/adapters/auth/odin"
	rediscache "medical-records-sharing/internal/adapters/cache/redis"
	"medical-records-sharing/internal/adapters/objectstore/b2"
	"medical-records-sharing/internal/adapters/objectstore/minio"
	mem "medical-records-sharing/internal/adapters/storage/memory"
	pg "medical-records-sharing/internal/adapters/storage/postgres"
	"medical-records-sharing/internal/domain/profiles"
	"medical-records-sharing/internal/platform/config"
	"medical-records-sharing/internal/platform/logger"
	"medical-records-sharing/internal/router"
)

type deps struct {
	router.Options
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// wire arma los adapters según config. Los opcionales (redis, mongo, object store)
// solo se conectan si están configurados.
func wire(ctx context.Context, cfg *config.Config, log logger.Logger) (*deps, error) {
	d := &deps{Options: router.Options{
		Logger:             log,
		SignedURLTTL:       cfg.SignedURLTTL,
		GrantLookupTimeout: cfg.GrantLookupTimeout,
		RecordFetchTimeout: cfg.RecordFetchTimeout,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DisableSwagger:     !cfg.IsDev(),
	}}

	if err := wireAuth(cfg, d); err != nil {
		return nil, err
	}

	var profileRepo profiles.Repository
	if cfg.DBDSN != "" {
		db, err := pg.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		d.closers = append(d.closers, func() { _ = db.Close() })
		d.DB = db
		profileRepo = pg.NewProfilesRepo(db)
		log.Info("using postgres stores", nil)
	} else {
		profileRepo = mem.NewIdentityProfileRepo()
		log.Warn("DB_DSN empty, using in-memory stores", nil)
		if id := cfg.SeedDemoPatient; id != "" {
			d.SeedRecords = func(st *mem.RecordStore) { mem.SeedDemo(st, id) }
			log.Info("seeding demo records", map[string]any{"patient_id": id})
		}
	}

	if cfg.RedisAddr != "" {
		rdb, err := rediscache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = rdb.Close() })
		profileRepo = rediscache.NewProfileCache(profileRepo, rdb, cfg.ProfileCacheTTL, log)
		log.Info("profile cache enabled", map[string]any{"ttl": cfg.ProfileCacheTTL.String()})
	}
	d.Profiles = profileRepo

	if cfg.MongoURI != "" {
		rec, client, err := mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = client.Disconnect(context.Background()) })
		d.Activity = rec
		log.Info("sharing activity trail enabled", map[string]any{"db": cfg.MongoDB})
	}

	switch cfg.ObjectStore {
	case config.ObjectStoreMinio:
		s, err := minio.New(minio.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.DocumentsBucket,
		})
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Signer = s
	case config.ObjectStoreB2:
		s, err := b2.New(ctx, cfg.B2KeyID, cfg.B2AppKey, cfg.DocumentsBucket)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.Signer = s
	default:
		log.Warn("OBJECT_STORE empty, document urls will be null", nil)
	}

	return d, nil
}

func wireAuth(cfg *config.Config, d *deps) error {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		v, err := jwtverifier.New(jwtverifier.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
		if err != nil {
			return err
		}
		d.AuthVerifier = v
	case config.AuthModeOdin:
		c, err := odin.NewClient(odin.Config{BaseURL: cfg.OdinBaseURL, APIKey: cfg.OdinAPIKey, Timeout: cfg.OdinTimeout})
		if err != nil {
			return err
		}
		d.AuthVerifier = odin.NewVerifier(c)
	default:
		// dev: headers X-Debug-*
	}
	return nil
}
