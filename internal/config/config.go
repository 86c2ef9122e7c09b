// Package config loads configuration from environment variables, .env files
// and an optional pipeline.yaml describing the deployment's sources and
// platforms.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the SOFA status service.
type Config struct {
	Server struct {
		Port         int           `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
	}

	Data struct {
		Dir          string `env:"DATA_DIR" envDefault:"./data" validate:"required"`
		ManifestPath string `env:"MANIFEST_PATH"` // defaults to <DATA_DIR>/manifest.json
		ResourcesDir string `env:"RESOURCES_DIR"` // defaults to <DATA_DIR>/resources
		FeedsDir     string `env:"FEEDS_DIR"`     // defaults to <DATA_DIR>/feeds
		PipelineFile string `env:"PIPELINE_CONFIG"`
	}

	Health struct {
		StaleAfter time.Duration `env:"FEED_STALE_AFTER" envDefault:"24h" validate:"min=1m"`
		CacheSize  int           `env:"FEED_CACHE_SIZE" envDefault:"64" validate:"min=1"`
	}

	Security struct {
		CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," validate:"cors_origins"`
		RateLimitRPS   int      `env:"RATE_LIMIT_RPS" envDefault:"50"`
		RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"100"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}

	// Pipeline describes the deployment's sources, platforms and artifact
	// names; populated from pipeline.yaml when PIPELINE_CONFIG is set,
	// defaults otherwise.
	Pipeline Pipeline
}

// Load loads configuration from environment variables and .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	applyDerivedDefaults(cfg)

	pipeline, err := LoadPipeline(cfg.Data.PipelineFile)
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = *pipeline

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyDerivedDefaults fills the path fields that default relative to DATA_DIR.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Data.ManifestPath == "" {
		cfg.Data.ManifestPath = filepath.Join(cfg.Data.Dir, "manifest.json")
	}
	if cfg.Data.ResourcesDir == "" {
		cfg.Data.ResourcesDir = filepath.Join(cfg.Data.Dir, "resources")
	}
	if cfg.Data.FeedsDir == "" {
		cfg.Data.FeedsDir = filepath.Join(cfg.Data.Dir, "feeds")
	}
}

// Validate validates the configuration using struct tags.
func Validate(cfg *Config) error {
	v := validator.New()

	if err := v.RegisterValidation("cors_origins", validateCORSOrigins); err != nil {
		return fmt.Errorf("failed to register cors_origins validation: %w", err)
	}

	if err := v.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return cfg.Pipeline.Validate()
}

// validateCORSOrigins validates CORS origins format.
func validateCORSOrigins(fl validator.FieldLevel) bool {
	origins := fl.Field().Interface().([]string)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return false
		}
	}
	return true
}

// formatValidationError converts validator errors to readable messages.
func formatValidationError(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var messages []string
	for _, fieldError := range validationErrors {
		messages = append(messages, fmt.Sprintf("field %s failed validation rule %s",
			fieldError.Namespace(), fieldError.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
