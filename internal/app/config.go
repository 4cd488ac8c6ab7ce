package app

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// RequestAPIURL is the base URL of the remote request repository;
	// the token is the service credential background jobs use when no
	// user session is involved.
	RequestAPIURL   string `envconfig:"REQUEST_API_URL" default:"http://127.0.0.1:9000"`
	RequestAPIToken string `envconfig:"REQUEST_API_TOKEN"`

	// IdentityAPIURL is the base URL of the identity provider; the API
	// key authorizes server-to-server role lookups.
	IdentityAPIURL string `envconfig:"IDENTITY_API_URL" default:"http://127.0.0.1:9100"`
	IdentityAPIKey string `envconfig:"IDENTITY_API_KEY"`

	RedisAddr              string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret          string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL             time.Duration `envconfig:"SESSION_TTL" default:"720h"`
	SessionRevalidateEvery time.Duration `envconfig:"SESSION_REVALIDATE_EVERY" default:"5m"`
	SessionMaxIdle         time.Duration `envconfig:"SESSION_MAX_IDLE" default:"168h"`
	SessionSweepCron       string        `envconfig:"SESSION_SWEEP_CRON" default:"30 3 * * *"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	ExportDir  string `envconfig:"EXPORT_DIR" default:"./exports"`
	ExportCron string `envconfig:"EXPORT_CRON" default:"0 2 * * *"`
}

// LoadConfig reads configuration from the environment, loading a local
// .env file first when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
