// Package config loads the service configuration from the environment.
// In development a .env file is loaded first; production deployments are
// expected to inject real environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	AppEnv string `mapstructure:"APP_ENV"`
	Host   string `mapstructure:"HOST"`
	Port   int    `mapstructure:"PORT"`

	RedisURL              string `mapstructure:"REDIS_URL"`
	PersistenceTTLSeconds int    `mapstructure:"PERSISTENCE_TTL_SECONDS"`

	AllowedOrigin    string `mapstructure:"ALLOWED_ORIGIN"`
	RateLimitTimes   int    `mapstructure:"RATE_LIMIT_TIMES"`
	RateLimitSeconds int    `mapstructure:"RATE_LIMIT_SECONDS"`
	MaxFileMB        int    `mapstructure:"MAX_FILE_MB"`
	TrustProxy       bool   `mapstructure:"TRUST_PROXY"`

	AnthropicAPIURL  string `mapstructure:"ANTHROPIC_API_URL"`
	AnthropicModel   string `mapstructure:"ANTHROPIC_MODEL"`
	AnthropicVersion string `mapstructure:"ANTHROPIC_VERSION"`

	ExtractConcurrency int    `mapstructure:"EXTRACT_CONCURRENCY"`
	EmbeddingBaseURL   string `mapstructure:"EMBEDDING_BASE_URL"`
	EmbeddingAPIKey    string `mapstructure:"EMBEDDING_API_KEY"`
	EmbeddingModelName string `mapstructure:"EMBEDDING_MODEL_NAME"`

	SemanticSearchURL string `mapstructure:"SEMANTIC_SEARCH_URL"`
}

// requiredVars must be present in the environment; everything else has a
// default below.
var requiredVars = []string{
	"APP_ENV",
	"REDIS_URL",
	"PERSISTENCE_TTL_SECONDS",
	"ALLOWED_ORIGIN",
	"RATE_LIMIT_TIMES",
	"RATE_LIMIT_SECONDS",
	"MAX_FILE_MB",
	"TRUST_PROXY",
	"ANTHROPIC_API_URL",
	"ANTHROPIC_MODEL",
	"ANTHROPIC_VERSION",
}

// Load reads configuration from the environment. A .env file is consulted
// so local runs need no exported variables; a missing .env is the normal
// case in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 8000)
	v.SetDefault("EXTRACT_CONCURRENCY", 4)
	v.SetDefault("EMBEDDING_BASE_URL", "http://127.0.0.1:8081/v1")
	v.SetDefault("EMBEDDING_API_KEY", "local")
	v.SetDefault("EMBEDDING_MODEL_NAME", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("SEMANTIC_SEARCH_URL", "https://api.semanticscholar.org/graph/v1/paper/search")

	var missing []string
	for _, name := range requiredVars {
		// AutomaticEnv resolves keys lazily, so bind each one explicitly
		// before checking presence.
		_ = v.BindEnv(name)
		if !v.IsSet(name) || v.GetString(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.PersistenceTTLSeconds <= 0 {
		return nil, fmt.Errorf("PERSISTENCE_TTL_SECONDS must be positive, got %d", cfg.PersistenceTTLSeconds)
	}
	if cfg.MaxFileMB <= 0 {
		return nil, fmt.Errorf("MAX_FILE_MB must be positive, got %d", cfg.MaxFileMB)
	}
	if cfg.ExtractConcurrency <= 0 {
		cfg.ExtractConcurrency = 4
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// TTL returns the shared persistence TTL as a duration.
func (c *Config) TTL() time.Duration {
	return time.Duration(c.PersistenceTTLSeconds) * time.Second
}

// MaxFileBytes returns the upload size ceiling in bytes.
func (c *Config) MaxFileBytes() int64 {
	return int64(c.MaxFileMB) << 20
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitWindow returns the fixed-window length for rate limiting.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitSeconds) * time.Second
}
