package router

import (
	"database/sql"
	"net/http"
	"time"

	mem "medical-records-sharing/internal/adapters/storage/memory"
	pg "medical-records-sharing/internal/adapters/storage/postgres"
	"medical-records-sharing/internal/domain/access"
	"medical-records-sharing/internal/domain/accessgrants"
	"medical-records-sharing/internal/domain/content"
	"medical-records-sharing/internal/domain/profiles"
	"medical-records-sharing/internal/domain/records"
	"medical-records-sharing/internal/middleware"
	"medical-records-sharing/internal/platform/logger"
	"medical-records-sharing/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "medical-records-sharing/docs"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	Logger       logger.Logger

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Overrides por store; tienen prioridad sobre DB.
	Grants   accessgrants.Repository
	Records  records.Reader
	Profiles profiles.Repository

	// SeedRecords se aplica al RecordStore in-memory (sin DB ni Records).
	SeedRecords func(*mem.RecordStore)

	// Opcionales: sin Activity no hay historial, sin Signer las URLs quedan en null.
	Activity accessgrants.ActivityRecorder
	Signer   content.URLSigner

	SignedURLTTL       time.Duration
	GrantLookupTimeout time.Duration
	RecordFetchTimeout time.Duration

	CORSOrigins        []string // vacío => "*"
	RateLimitPerMinute int      // <= 0 => sin límite
	DisableSwagger     bool
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recoverer(log))

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.HeaderDebugUserID, middleware.HeaderDebugRole},
		ExposedHeaders: []string{chimw.RequestIDHeader},
		MaxAge:         300,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if !opts.DisableSwagger {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	var (
		grantsRepo  accessgrants.Repository
		recordsRepo records.Reader
		profileRepo profiles.Repository
	)
	if opts.DB != nil {
		grantsRepo = pg.NewAccessGrantsRepo(opts.DB)
		recordsRepo = pg.NewRecordsRepo(opts.DB)
		profileRepo = pg.NewProfilesRepo(opts.DB)
	} else {
		grantsRepo = mem.NewAccessGrantsRepo()
		st := mem.NewRecordStore()
		if opts.SeedRecords != nil && opts.Records == nil {
			opts.SeedRecords(st)
		}
		recordsRepo = st
		// dev: el id de perfil es el id de usuario
		profileRepo = mem.NewIdentityProfileRepo()
	}
	if opts.Grants != nil {
		grantsRepo = opts.Grants
	}
	if opts.Records != nil {
		recordsRepo = opts.Records
	}
	if opts.Profiles != nil {
		profileRepo = opts.Profiles
	}

	// Services por módulo
	profilesSvc := profiles.NewService(profileRepo)
	grantsSvc := accessgrants.NewService(grantsRepo, profilesSvc, opts.Activity, log)
	gateway := content.NewGateway(opts.Signer, opts.SignedURLTTL, log)
	resolver := access.NewResolver(grantsRepo, recordsRepo, profilesSvc, gateway, access.Options{
		GrantLookupTimeout: opts.GrantLookupTimeout,
		RecordFetchTimeout: opts.RecordFetchTimeout,
		Logger:             log,
	})

	// Rutas por módulo
	accessgrants.RegisterRoutes(r, grantsSvc)
	access.RegisterRoutes(r, resolver)

	return r
}
