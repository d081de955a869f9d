package quizmaker

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of the web server
type Config struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	DatabaseURL string

	SessionSecret []byte
	SessionTTL    time.Duration
	CookieSecure  bool // set when served over TLS

	Port    string
	LogDir  string
	Verbose bool
}

// ErrMissingAPIKey is returned when OPENAI_API_KEY is not set.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

// LoadConfig reads a .env file if one exists and then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from a lookup function. The API key and the
// database URL have no defaults: a missing one is a configuration error.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	envOr := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		OpenAIAPIKey:  strings.TrimSpace(getenv("OPENAI_API_KEY")),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL"),
		OpenAIModel:   getenv("OPENAI_MODEL"),
		DatabaseURL:   strings.TrimSpace(getenv("DATABASE_URL")),
		Port:          envOr("PORT", "8180"),
		LogDir:        envOr("LOG_DIR", "log"),
	}

	cfg.Verbose = envBool(getenv("VERBOSE"))
	cfg.CookieSecure = envBool(getenv("COOKIE_SECURE"))

	ttl, err := time.ParseDuration(envOr("SESSION_TTL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	if cfg.OpenAIAPIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}

	if secret := getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		log.Println("SESSION_SECRET not set, using a random key; sessions will not survive a restart")
		cfg.SessionSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.SessionSecret); err != nil {
			return Config{}, fmt.Errorf("failed to generate session secret: %w", err)
		}
	}

	return cfg, nil
}

func envBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
