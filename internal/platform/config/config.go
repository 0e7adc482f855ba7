package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	AuthModeDev  = "dev"
	AuthModeJWT  = "jwt"
	AuthModeOdin = "odin"

	ObjectStoreNone  = ""
	ObjectStoreMinio = "minio"
	ObjectStoreB2    = "b2"
)

type Config struct {
	AppName string `mapstructure:"APP_NAME"`
	Env     string `mapstructure:"ENV"`
	Port    string `mapstructure:"PORT"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	AuthMode    string        `mapstructure:"AUTH_MODE"`
	JWTSecret   string        `mapstructure:"JWT_SECRET"`
	JWTIssuer   string        `mapstructure:"JWT_ISSUER"`
	OdinBaseURL string        `mapstructure:"ODIN_BASE_URL"`
	OdinAPIKey  string        `mapstructure:"ODIN_API_KEY"`
	OdinTimeout time.Duration `mapstructure:"ODIN_TIMEOUT"`

	DBDSN string `mapstructure:"DB_DSN"`
	// Solo sin DB_DSN: siembra registros demo para este paciente.
	SeedDemoPatient string `mapstructure:"SEED_DEMO_PATIENT"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL"`

	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	ObjectStore     string        `mapstructure:"OBJECT_STORE"`
	MinioEndpoint   string        `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey  string        `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string        `mapstructure:"MINIO_SECRET_KEY"`
	MinioUseSSL     bool          `mapstructure:"MINIO_USE_SSL"`
	MinioRegion     string        `mapstructure:"MINIO_REGION"`
	B2KeyID         string        `mapstructure:"B2_KEY_ID"`
	B2AppKey        string        `mapstructure:"B2_APPLICATION_KEY"`
	DocumentsBucket string        `mapstructure:"DOCUMENTS_BUCKET"`
	SignedURLTTL    time.Duration `mapstructure:"SIGNED_URL_TTL"`

	GrantLookupTimeout time.Duration `mapstructure:"GRANT_LOOKUP_TIMEOUT"`
	RecordFetchTimeout time.Duration `mapstructure:"RECORD_FETCH_TIMEOUT"`

	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	CORSOrigins        []string      `mapstructure:"-"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"APP_NAME", "ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	"AUTH_MODE", "JWT_SECRET", "JWT_ISSUER", "ODIN_BASE_URL", "ODIN_API_KEY", "ODIN_TIMEOUT",
	"DB_DSN", "SEED_DEMO_PATIENT",
	"REDIS_ADDR", "REDIS_PASSWORD", "PROFILE_CACHE_TTL",
	"MONGO_URI", "MONGO_DB",
	"OBJECT_STORE", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL", "MINIO_REGION",
	"B2_KEY_ID", "B2_APPLICATION_KEY", "DOCUMENTS_BUCKET", "SIGNED_URL_TTL",
	"GRANT_LOOKUP_TIMEOUT", "RECORD_FETCH_TIMEOUT",
	"RATE_LIMIT_PER_MINUTE", "CORS_ORIGINS", "SHUTDOWN_TIMEOUT",
}

// Load lee .env (si existe) y variables de entorno.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "medical-records-sharing")
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("AUTH_MODE", AuthModeDev)
	v.SetDefault("ODIN_TIMEOUT", "5s")
	v.SetDefault("PROFILE_CACHE_TTL", "10m")
	v.SetDefault("MONGO_DB", "records_sharing")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("DOCUMENTS_BUCKET", "documents")
	v.SetDefault("SIGNED_URL_TTL", "1h")
	v.SetDefault("GRANT_LOOKUP_TIMEOUT", "3s")
	v.SetDefault("RECORD_FETCH_TIMEOUT", "5s")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	// Unmarshal solo ve env vars enlazadas explícitamente.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.ObjectStore = strings.ToLower(strings.TrimSpace(cfg.ObjectStore))
	cfg.CORSOrigins = splitCSV(v.GetString("CORS_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeDev:
	case AuthModeJWT:
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthModeOdin:
		if strings.TrimSpace(c.OdinBaseURL) == "" || strings.TrimSpace(c.OdinAPIKey) == "" {
			return fmt.Errorf("ODIN_BASE_URL and ODIN_API_KEY are required when AUTH_MODE=odin")
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	switch c.ObjectStore {
	case ObjectStoreNone:
	case ObjectStoreMinio:
		if c.MinioEndpoint == "" || c.MinioAccessKey == "" || c.MinioSecretKey == "" {
			return fmt.Errorf("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when OBJECT_STORE=minio")
		}
	case ObjectStoreB2:
		if c.B2KeyID == "" || c.B2AppKey == "" {
			return fmt.Errorf("B2_KEY_ID and B2_APPLICATION_KEY are required when OBJECT_STORE=b2")
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE %q", c.ObjectStore)
	}

	if c.SignedURLTTL < time.Minute || c.SignedURLTTL > 24*time.Hour {
		return fmt.Errorf("SIGNED_URL_TTL must be between 1m and 24h, got %s", c.SignedURLTTL)
	}
	if c.GrantLookupTimeout <= 0 || c.RecordFetchTimeout <= 0 {
		return fmt.Errorf("GRANT_LOOKUP_TIMEOUT and RECORD_FETCH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
