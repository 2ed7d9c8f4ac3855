package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
)

// DefaultConfigPath is read when present. A missing file is not an error;
// configuration then comes from environment variables and defaults only.
const DefaultConfigPath = "config.yaml"

// Provider names accepted by the embedding and generation settings.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// SchemaDimension is the vector width of document_chunks.embedding in the migrations.
const SchemaDimension = 1536

// Config holds all configuration for ekaya-rag.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// ShutdownTimeout bounds graceful shutdown of the HTTP server.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	RAG       RAGConfig       `yaml:"rag"`
}

// StorageConfig selects where documents, chunks and query logs live.
type StorageConfig struct {
	// Backend is "postgres" (default) or "memory" for local development.
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"postgres"`
	// MemoryTenants is a comma-separated list of tenant UUIDs provisioned in memory mode.
	MemoryTenants string `yaml:"memory_tenants" env:"MEMORY_TENANTS" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"rag"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"rag_system"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	// MigrationsPath is the directory holding golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
	// RunMigrations applies pending migrations on startup.
	RunMigrations bool `yaml:"run_migrations" env:"RUN_MIGRATIONS" env-default:"true"`
}

// RedisConfig holds Redis configuration for the query cache.
// An empty host selects the in-process cache.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// MemoryCacheSize bounds the in-process cache when Redis is not configured.
	MemoryCacheSize int `yaml:"memory_cache_size" env:"MEMORY_CACHE_SIZE" env-default:"10000"`
}

// EmbeddingConfig configures the embedding provider adapter.
type EmbeddingConfig struct {
	// Provider is "openai" or "mock". Empty selects openai when an API key is
	// configured and mock otherwise.
	Provider  string        `yaml:"provider" env:"EMBEDDING_PROVIDER" env-default:""`
	Model     string        `yaml:"model" env:"EMBEDDING_MODEL" env-default:"text-embedding-ada-002"`
	Dimension int           `yaml:"dimension" env:"EMBEDDING_DIMENSION" env-default:"1536"`
	Timeout   time.Duration `yaml:"timeout" env:"EMBEDDING_TIMEOUT" env-default:"30s"`
	// MaxRetries is the number of additional attempts for a single embedding call.
	MaxRetries   int           `yaml:"max_retries" env:"EMBEDDING_MAX_RETRIES" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"EMBEDDING_RETRY_INITIAL_DELAY" env-default:"1s"`
}

// LLMConfig configures the completion provider used by the response generator.
type LLMConfig struct {
	// Provider is "openai", "anthropic" or "mock". Empty selects a provider
	// based on which API key is configured.
	Provider        string        `yaml:"provider" env:"LLM_PROVIDER" env-default:""`
	Model           string        `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4"`
	BaseURL         string        `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	OpenAIAPIKey    string        `yaml:"-" env:"OPENAI_API_KEY"`    // Secret - not in YAML
	AnthropicAPIKey string        `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
	Temperature     float64       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.7"`
	MaxTokens       int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"500"`
	Timeout         time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"60s"`
	// Circuit breaker for generation calls.
	BreakerThreshold  int           `yaml:"breaker_threshold" env:"LLM_BREAKER_THRESHOLD" env-default:"5"`
	BreakerResetAfter time.Duration `yaml:"breaker_reset_after" env:"LLM_BREAKER_RESET_AFTER" env-default:"30s"`
}

// RAGConfig holds pipeline settings.
type RAGConfig struct {
	ChunkSize    int           `yaml:"chunk_size" env:"CHUNK_SIZE" env-default:"1000"`
	ChunkOverlap int           `yaml:"chunk_overlap" env:"CHUNK_OVERLAP" env-default:"200"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"CACHE_TTL" env-default:"1h"`
	DefaultTopK  int           `yaml:"default_top_k" env:"TOP_K_RESULTS" env-default:"5"`
	// SourcePreviewLength caps the chunk text returned in citations.
	SourcePreviewLength int `yaml:"source_preview_length" env:"SOURCE_PREVIEW_LENGTH" env-default:"200"`
	// AuditLogRequired makes a failed query log write fail the request.
	AuditLogRequired bool `yaml:"audit_log_required" env:"AUDIT_LOG_REQUIRED" env-default:"true"`
	// MaxConcurrentPerTenant caps in-flight queries per tenant. Zero disables the cap.
	MaxConcurrentPerTenant int `yaml:"max_concurrent_per_tenant" env:"MAX_CONCURRENT_PER_TENANT" env-default:"0"`
}

// Bounds for the number of chunks a query may retrieve.
const (
	MinTopK = 1
	MaxTopK = 20
)

// Load reads configuration from config.yaml (if present) with environment
// variable overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigPath, version)
}

// LoadFrom reads configuration from the given YAML path with environment overrides.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	cfg.resolveProviders()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolveProviders fills in provider names left empty, based on which
// credentials are configured. Keys starting with "mock" count as absent.
func (c *Config) resolveProviders() {
	openAI := hasCredential(c.LLM.OpenAIAPIKey)
	anthropic := hasCredential(c.LLM.AnthropicAPIKey)

	if c.Embedding.Provider == "" {
		if openAI {
			c.Embedding.Provider = ProviderOpenAI
		} else {
			c.Embedding.Provider = ProviderMock
		}
	}

	if c.LLM.Provider == "" {
		switch {
		case openAI:
			c.LLM.Provider = ProviderOpenAI
		case anthropic:
			c.LLM.Provider = ProviderAnthropic
		default:
			c.LLM.Provider = ProviderMock
		}
	}
}

func hasCredential(key string) bool {
	return key != "" && !strings.HasPrefix(key, "mock")
}

// Validate checks settings that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return &apperrors.ConfigurationError{Setting: "rag.chunk_size", Message: "must be positive"}
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return &apperrors.ConfigurationError{Setting: "rag.chunk_overlap", Message: "must be in [0, chunk_size)"}
	}
	if c.Embedding.Dimension <= 0 {
		return &apperrors.ConfigurationError{Setting: "embedding.dimension", Message: "must be positive"}
	}
	if c.RAG.DefaultTopK < MinTopK || c.RAG.DefaultTopK > MaxTopK {
		return &apperrors.ConfigurationError{Setting: "rag.default_top_k", Message: fmt.Sprintf("must be in [%d, %d]", MinTopK, MaxTopK)}
	}
	if c.RAG.CacheTTL <= 0 {
		return &apperrors.ConfigurationError{Setting: "rag.cache_ttl", Message: "must be positive"}
	}
	if c.RAG.SourcePreviewLength <= 0 {
		return &apperrors.ConfigurationError{Setting: "rag.source_preview_length", Message: "must be positive"}
	}
	if c.RAG.MaxConcurrentPerTenant < 0 {
		return &apperrors.ConfigurationError{Setting: "rag.max_concurrent_per_tenant", Message: "must not be negative"}
	}

	switch c.Storage.Backend {
	case StoragePostgres:
		if c.Embedding.Dimension != SchemaDimension {
			return &apperrors.ConfigurationError{Setting: "embedding.dimension", Message: fmt.Sprintf("postgres storage requires %d", SchemaDimension)}
		}
	case StorageMemory:
	default:
		return &apperrors.ConfigurationError{Setting: "storage.backend", Message: fmt.Sprintf("unknown backend %q", c.Storage.Backend)}
	}

	switch c.Embedding.Provider {
	case ProviderMock:
	case ProviderOpenAI:
		if !hasCredential(c.LLM.OpenAIAPIKey) {
			return &apperrors.ConfigurationError{Setting: "embedding.provider", Message: "openai requires OPENAI_API_KEY"}
		}
	default:
		return &apperrors.ConfigurationError{Setting: "embedding.provider", Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider)}
	}

	switch c.LLM.Provider {
	case ProviderMock:
	case ProviderOpenAI:
		if !hasCredential(c.LLM.OpenAIAPIKey) {
			return &apperrors.ConfigurationError{Setting: "llm.provider", Message: "openai requires OPENAI_API_KEY"}
		}
	case ProviderAnthropic:
		if !hasCredential(c.LLM.AnthropicAPIKey) {
			return &apperrors.ConfigurationError{Setting: "llm.provider", Message: "anthropic requires ANTHROPIC_API_KEY"}
		}
	default:
		return &apperrors.ConfigurationError{Setting: "llm.provider", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)}
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Addr returns the Redis address in host:port form.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MemoryTenantList parses the comma-separated tenant list used in memory mode.
func (c *StorageConfig) MemoryTenantList() []string {
	if c.MemoryTenants == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(c.MemoryTenants, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
