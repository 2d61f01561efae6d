package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-aipi/internal/domain"
)

// Config is the complete runtime configuration of the index service and
// its surfaces. It is loaded from YAML and validated before use.
type Config struct {
	// Source describes where the dataset and its optional meta document
	// are read from and how remote fetches are protected.
	Source SourceConfig `yaml:"source" validate:"required"`
	// StatusThresholds are the numeric cut-offs used when an indicator's
	// raw value is not a recognized status token.
	StatusThresholds domain.StatusThresholds `yaml:"status_thresholds"`
	// Server configures the read-only HTTP API.
	Server ServerConfig `yaml:"server"`
	// Archive configures the release history database.
	Archive ArchiveConfig `yaml:"archive"`
	// DefaultMode is the scoring mode used when a request names none.
	DefaultMode string `yaml:"default_mode" validate:"required,scoremode"`
}

// SourceConfig locates the dataset. Exactly one of Path and URL is set;
// the meta document is optional and follows the same rule.
type SourceConfig struct {
	// Path is a local CSV file.
	Path string `yaml:"path" validate:"required_without=URL,excluded_with=URL"`
	// URL is a remote CSV document fetched over HTTP(S).
	URL string `yaml:"url" validate:"omitempty,url"`
	// MetaPath is a local meta.json file.
	MetaPath string `yaml:"meta_path" validate:"excluded_with=MetaURL"`
	// MetaURL is a remote meta.json document.
	MetaURL string `yaml:"meta_url" validate:"omitempty,url"`
	// Timeout bounds a single fetch attempt.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0s,lte=10m"`
	// Retry configures backoff for transient remote failures.
	Retry RetryConfig `yaml:"retry"`
	// RateLimit paces remote requests; a zero RPS disables pacing.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// CircuitBreaker stops hammering a failing host; zero MaxFailures
	// disables it.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	// RevalidateAfter is how long a built index is served before the
	// source is asked again whether it changed. Zero checks on every read.
	RevalidateAfter time.Duration `yaml:"revalidate_after" validate:"gte=0s,lte=24h"`
}

// RetryConfig specifies backoff for transient fetch failures.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"min=1,max=10"`
	// InitialWait is the base delay in milliseconds.
	InitialWait int `yaml:"initial_wait_ms" validate:"min=0,max=60000"`
	// MaxWait caps the delay in milliseconds.
	MaxWait int `yaml:"max_wait_ms" validate:"min=0,max=300000,gtefield=InitialWait"`
}

// RateLimitConfig is a token bucket specification.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" validate:"gte=0,lte=1000"`
	Burst int     `yaml:"burst" validate:"gte=0,lte=1000"`
}

// CircuitBreakerConfig controls when remote fetches are short-circuited.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures" validate:"gte=0,lte=100"`
	Cooldown    time.Duration `yaml:"cooldown" validate:"gte=0s"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// ArchiveConfig configures the release archive. An empty Path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Remote reports whether the dataset is fetched over HTTP.
func (s SourceConfig) Remote() bool { return s.URL != "" }

// Location returns the configured dataset path or URL.
func (s SourceConfig) Location() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// MetaLocation returns the configured meta path or URL, empty when none.
func (s SourceConfig) MetaLocation() string {
	if s.MetaURL != "" {
		return s.MetaURL
	}
	return s.MetaPath
}

// Mode returns the parsed default scoring mode.
func (c Config) Mode() domain.Mode {
	m, err := domain.ParseMode(c.DefaultMode)
	if err != nil {
		return domain.ModeEvidence
	}
	return m
}

// Classifier returns a status classifier using the configured thresholds.
func (c Config) Classifier() domain.Classifier {
	return domain.NewClassifier(c.StatusThresholds)
}

// DefaultConfig returns production defaults, reading the dataset from the
// conventional local build path.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Path:    "data/aipi_scores.csv",
			Timeout: 15 * time.Second,
			Retry: RetryConfig{
				MaxAttempts: 3,
				InitialWait: 250,
				MaxWait:     5000,
			},
			RateLimit:       RateLimitConfig{RPS: 2, Burst: 4},
			CircuitBreaker:  CircuitBreakerConfig{MaxFailures: 5, Cooldown: 30 * time.Second},
			RevalidateAfter: 30 * time.Second,
		},
		StatusThresholds: domain.DefaultStatusThresholds(),
		Server:           ServerConfig{Addr: ":8080"},
		DefaultMode:      string(domain.ModeEvidence),
	}
}

// LoadConfig reads, decodes and validates a YAML configuration file.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Decoding is strict so that typos in field names are reported rather than
// silently ignored.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.Source.Path = ""
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML decode failed: %w", err)
	}
	if cfg.Source.URL == "" && cfg.Source.Path == "" {
		cfg.Source.Path = DefaultConfig().Source.Path
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every violation at once.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterConfigValidators(v); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	verr := domain.NewValidationError("config")
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

// RegisterConfigValidators adds the custom validation tags used by Config.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("scoremode", validateScoreMode); err != nil {
		return fmt.Errorf("failed to register scoremode validator: %w", err)
	}
	return nil
}

func validateScoreMode(fl validator.FieldLevel) bool {
	_, err := domain.ParseMode(fl.Field().String())
	return err == nil
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return field + " is required when " + fe.Param() + " is not set"
	case "excluded_with":
		return field + " cannot be combined with " + fe.Param()
	case "scoremode":
		return fmt.Sprintf("%s: unknown scoring mode %q", field, fe.Value())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s failed %s (got %v)", field, fe.Tag(), fe.Value())
	}
}
