// Package config loads the server configuration from environment variables
// and docker secret files. Secret fields deliberately have no envconfig tag;
// they are read from /run/secrets with a development-only env fallback.
package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	Env        string `envconfig:"ENV" default:"development"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"debug"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	// PublicURL is the site origin used for edit and read links in emails,
	// without a trailing slash.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:3000"`

	// StorageBackend selects the storage adapter: "postgres" or "strapi".
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"postgres"`

	// Database (postgres backend)
	DBHost    string `envconfig:"DB_HOST" default:"localhost"`
	DBPort    string `envconfig:"DB_PORT" default:"5432"`
	DBUser    string `envconfig:"DB_USER" default:"vomprater"`
	DBName    string `envconfig:"DB_NAME" default:"vomprater"`
	DBSSLMode string `envconfig:"DB_SSL_MODE" default:"disable"`
	// Secret field, no envconfig tag.
	DBPassword string

	// Headless CMS (strapi backend)
	StrapiURL string `envconfig:"STRAPI_URL" default:"http://localhost:1337"`
	// Secret field, no envconfig tag.
	StrapiToken string

	// Redis backs the verify-password rate limiter.
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Secret field, no envconfig tag.
	RedisPassword string

	// Token secrets. Secret fields, no envconfig tags.
	StoryTokenSecret     string
	ModeratorTokenSecret string
	StoryTokenTTL        time.Duration `envconfig:"STORY_TOKEN_TTL" default:"24h"`

	// Email
	SenderEmail string `envconfig:"SMTP_EMAIL" default:"vomprateraus@pratergalerie.de"`
	SenderName  string `envconfig:"SMTP_SENDER_NAME" default:"Vom Prater aus"`
	// Secret field, no envconfig tag. Empty switches to the log-only mailer.
	BrevoAPIKey string

	// CORS
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Rate limit for POST /stories/verify-password.
	VerifyRateLimit  int           `envconfig:"VERIFY_RATE_LIMIT" default:"5"`
	VerifyRateWindow time.Duration `envconfig:"VERIFY_RATE_WINDOW" default:"1m"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// GetAllowedOrigins splits the CORSAllowedOrigins string into a slice.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",")
}

// DatabaseURL assembles the pgx connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secrets.
func LoadConfig(envFilePath string) (*Config, error) {
	if _, err := os.Stat(envFilePath); err == nil {
		if err := godotenv.Load(envFilePath); err != nil {
			log.Printf("Warning: Could not load %s file: %v", envFilePath, err)
		} else {
			log.Printf("Loaded configuration from %s", envFilePath)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("Warning: Error checking %s file: %v", envFilePath, err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env vars: %w", err)
	}

	var loadErr error
	cfg.StoryTokenSecret, loadErr = readSecret(&cfg, "story_jwt_secret", "STORY_JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.ModeratorTokenSecret, loadErr = readSecret(&cfg, "moderator_jwt_secret", "MODERATOR_JWT_SECRET")
	if loadErr != nil {
		return nil, loadErr
	}

	// Optional secrets.
	cfg.DBPassword = readOptionalSecret(&cfg, "db_password", "DB_PASSWORD")
	cfg.StrapiToken = readOptionalSecret(&cfg, "strapi_token", "STRAPI_TOKEN")
	cfg.RedisPassword = readOptionalSecret(&cfg, "redis_password", "REDIS_PASSWORD")
	cfg.BrevoAPIKey = readOptionalSecret(&cfg, "brevo_api_key", "BREVO_API_KEY")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("Configuration loaded successfully (secrets read from files).")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.StorageBackend != "postgres" && c.StorageBackend != "strapi" {
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.IsProduction() {
		// The token signing secrets gate all write access; refusing to boot
		// beats running with a guessable secret.
		if len(c.StoryTokenSecret) < 32 {
			return fmt.Errorf("STORY_JWT_SECRET is too short for production (need 32+ chars)")
		}
		if len(c.ModeratorTokenSecret) < 32 {
			return fmt.Errorf("MODERATOR_JWT_SECRET is too short for production (need 32+ chars)")
		}
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required in production")
		}
	}
	return nil
}

// readSecret reads a required secret from the docker secrets path, falling
// back to the environment outside production.
func readSecret(cfg *Config, secretName, envName string) (string, error) {
	secret, err := readSecretFile(secretName)
	if err == nil {
		return secret, nil
	}
	if !cfg.IsProduction() {
		if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("secret %s unavailable: %w", secretName, err)
}

func readOptionalSecret(cfg *Config, secretName, envName string) string {
	if secret, err := readSecretFile(secretName); err == nil {
		return secret
	}
	if !cfg.IsProduction() {
		return strings.TrimSpace(os.Getenv(envName))
	}
	return ""
}

// readSecretFile reads a secret from the standard Docker Secrets path.
func readSecretFile(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
