// Package config provides configuration for the ragbook service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// ModeMock switches every remote collaborator to its deterministic in-process double.
const ModeMock = "MOCK"

// Memory backends.
const (
	MemorySQLite = "sqlite"
	MemoryRedis  = "redis"
)

// Vector backends.
const (
	VectorMemory   = "memory"
	VectorPGVector = "pgvector"
)

// Classifier strategies.
const (
	ClassifierRemote   = "remote"
	ClassifierKeywords = "keywords"
)

// Extractor strategies.
const (
	ExtractorRemote     = "remote"
	ExtractorHeuristic  = "heuristic"
	ExtractorRemoteOnly = "remote_only"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort       int   `env:"HTTP_PORT" envDefault:"8080"`
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	RateLimitRPS   int   `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int   `env:"RATE_LIMIT_BURST" envDefault:"20"`

	Mode string `env:"MODE"`

	// Storage
	DatabaseURL          string        `env:"DATABASE_URL" envDefault:"file:ragbook.db?cache=shared&mode=rwc"`
	MemoryBackend        string        `env:"MEMORY_BACKEND" envDefault:"sqlite"`
	RedisURL             string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	SessionSweepSchedule string        `env:"SESSION_SWEEP_SCHEDULE" envDefault:"@hourly"`
	VectorBackend        string        `env:"VECTOR_BACKEND" envDefault:"memory"`
	PostgresURL          string        `env:"POSTGRES_URL"`
	EmbeddingDimensions  int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`

	// LLM provider
	OpenAIAPIKey   string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `env:"OPENAI_BASE_URL"`
	ChatModel      string `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Timeouts
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"15s"`
	ExtractorTimeout  time.Duration `env:"EXTRACTOR_TIMEOUT" envDefault:"15s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`

	// Conversation behaviour
	RetrievalTopK      int    `env:"RETRIEVAL_TOP_K" envDefault:"4"`
	AnswerMaxTokens    int    `env:"ANSWER_MAX_TOKENS" envDefault:"500"`
	ClassifierStrategy string `env:"CLASSIFIER_STRATEGY" envDefault:"remote"`
	ExtractorStrategy  string `env:"EXTRACTOR_STRATEGY" envDefault:"remote"`
	PolicyFile         string `env:"POLICY_FILE"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads an optional .env file and parses RAGBOOK_* environment variables.
// A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	dotenvErr := godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Prefix: "RAGBOOK_"}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if dotenvErr != nil {
		return cfg, &DotenvWarning{Err: dotenvErr}
	}
	return cfg, nil
}

// DotenvWarning is returned alongside a valid config when no .env file could be read.
type DotenvWarning struct {
	Err error
}

func (w *DotenvWarning) Error() string {
	return fmt.Sprintf(".env not loaded: %v", w.Err)
}

func (w *DotenvWarning) Unwrap() error {
	return w.Err
}

// IsMock reports whether remote collaborators should be replaced by local doubles.
func (c *Config) IsMock() bool {
	return c.Mode == ModeMock
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.MemoryBackend {
	case MemorySQLite, MemoryRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown memory backend %q", c.MemoryBackend))
	}
	switch c.VectorBackend {
	case VectorMemory:
	case VectorPGVector:
		if c.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required for the pgvector backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.VectorBackend))
	}
	switch c.ClassifierStrategy {
	case ClassifierRemote, ClassifierKeywords:
	default:
		errs = append(errs, fmt.Errorf("unknown classifier strategy %q", c.ClassifierStrategy))
	}
	switch c.ExtractorStrategy {
	case ExtractorRemote, ExtractorHeuristic, ExtractorRemoteOnly:
	default:
		errs = append(errs, fmt.Errorf("unknown extractor strategy %q", c.ExtractorStrategy))
	}
	if c.Mode != "" && c.Mode != ModeMock {
		errs = append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	if !c.IsMock() && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required unless MODE=MOCK"))
	}
	if c.RetrievalTopK <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_TOP_K must be positive"))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must be positive"))
	}

	return errors.Join(errs...)
}
